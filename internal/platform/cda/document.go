// Package cda reads HL7 CDA R2 clinical documents as exported by the Maisa
// patient portal and extracts typed clinical facts from them: patient
// demographics, allergies, medications, lab results, diagnoses, procedures,
// social history, immunizations, and per-document narrative summaries.
//
// The extractors are deliberately tolerant. A missing node yields a default
// or an omitted value, never an error; only a document that fails to parse
// at all is reported to the caller.
package cda

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

// Document is a parsed clinical document: the element tree plus a one-time
// index of every element carrying an ID attribute, used to resolve
// originalText references of the form "#id".
type Document struct {
	root *etree.Element
	byID map[string]*etree.Element
}

// Parse reads a CDA XML document into a navigable Document.
func Parse(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("cda: document is empty")
	}
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, err
	}
	root := tree.Root()
	if root == nil {
		return nil, errors.New("cda: document has no root element")
	}

	d := &Document{root: root, byID: make(map[string]*etree.Element)}
	d.indexIDs(root)
	return d, nil
}

// Root returns the document element.
func (d *Document) Root() *etree.Element { return d.root }

// SectionByCode returns the first section whose code element carries the
// given code attribute, or nil.
func (d *Document) SectionByCode(code string) *etree.Element {
	for _, section := range descendants(d.root, "section") {
		if c := child(section, "code"); c != nil && c.SelectAttrValue("code", "") == code {
			return section
		}
	}
	return nil
}

// ResolveReference resolves an originalText reference value ("#med1") to the
// full trimmed text content of the element whose ID attribute matches. The
// second return reports whether the ID exists in the document.
func (d *Document) ResolveReference(ref string) (string, bool) {
	id := strings.TrimPrefix(ref, "#")
	el, ok := d.byID[id]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(innerText(el)), true
}

// indexIDs records the first element seen for each ID attribute value. XML
// IDs are unique per document, so first-wins matches a document-order scan.
func (d *Document) indexIDs(el *etree.Element) {
	if id := el.SelectAttrValue("ID", ""); id != "" {
		if _, exists := d.byID[id]; !exists {
			d.byID[id] = el
		}
	}
	for _, c := range el.ChildElements() {
		d.indexIDs(c)
	}
}

// ---------------------------------------------------------------------------
// Traversal helpers
// ---------------------------------------------------------------------------
//
// Elements are matched on their local tag name only. Maisa exports use the
// default HL7 v3 namespace, and matching the local name keeps the traversal
// working for prefixed documents too.

// child returns the first direct child element with the given local name.
func child(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// children returns all direct child elements with the given local name.
func children(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// descendants returns every descendant element with the given local name, in
// document order. The element itself is not considered.
func descendants(el *etree.Element, tag string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Tag == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(el)
	return out
}

// xsiType returns the xsi:type attribute of an element ("PQ", "CD", ...).
func xsiType(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.SelectAttrValue("type", "")
}

// innerText returns the concatenated character data of an element and all of
// its descendants, in document order, without collapsing whitespace.
func innerText(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				sb.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return sb.String()
}

// collapseSpace reduces runs of whitespace to single spaces and trims the
// result.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
