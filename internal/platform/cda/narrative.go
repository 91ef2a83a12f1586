package cda

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/ehr/cdaconvert/internal/domain/record"
)

// ExtractDocumentSummary builds the narrative view of a single document: its
// date, type, authoring provider, and the free-text content of every body
// section not already covered by the structured extractors.
func ExtractDocumentSummary(doc *Document, sourceFile string) record.DocumentSummary {
	summary := record.DocumentSummary{
		Type:       "Clinical Document",
		Provider:   record.Unknown,
		SourceFile: sourceFile,
	}

	summary.Date = documentDate(doc)

	if provider := documentProvider(doc); provider != "" {
		summary.Provider = provider
	}

	if title := descendants(doc.Root(), "title"); len(title) > 0 {
		if text := strings.TrimSpace(title[0].Text()); text != "" {
			summary.Type = text
		}
	}

	summary.Notes = narrativeNotes(doc)

	return summary
}

// documentDate prefers the service event's low bound and falls back to the
// first effectiveTime anywhere in the document that carries a value
// attribute.
func documentDate(doc *Document) *string {
	for _, docOf := range descendants(doc.Root(), "documentationOf") {
		if event := child(docOf, "serviceEvent"); event != nil {
			if eff := child(event, "effectiveTime"); eff != nil {
				if low := child(eff, "low"); low != nil {
					if value := low.SelectAttrValue("value", ""); value != "" {
						return NormalizeTime(value)
					}
				}
			}
		}
	}

	for _, eff := range descendants(doc.Root(), "effectiveTime") {
		if eff.SelectAttr("value") != nil {
			return NormalizeTime(eff.SelectAttrValue("value", ""))
		}
	}
	return nil
}

// documentProvider prefers the assigned person's name under the author node
// and falls back to the represented organization's name.
func documentProvider(doc *Document) string {
	for _, author := range descendants(doc.Root(), "author") {
		assigned := child(author, "assignedAuthor")
		if assigned == nil {
			continue
		}
		if person := child(assigned, "assignedPerson"); person != nil {
			if name := child(person, "name"); name != nil {
				if joined := collapseSpace(innerText(name)); joined != "" {
					return joined
				}
			}
		}
		if org := child(assigned, "representedOrganization"); org != nil {
			if name := child(org, "name"); name != nil {
				if text := strings.TrimSpace(name.Text()); text != "" {
					return text
				}
			}
		}
	}
	return ""
}

// narrativeNotes joins the surviving body sections as "title: text" lines.
// Sections whose title matches the bilingual exclusion list are skipped, as
// their content is already captured in structured form.
func narrativeNotes(doc *Document) string {
	var body *etree.Element
	for _, comp := range descendants(doc.Root(), "component") {
		if sb := child(comp, "structuredBody"); sb != nil {
			body = sb
			break
		}
	}
	if body == nil {
		return ""
	}

	var parts []string
	for _, section := range descendants(body, "section") {
		title := ""
		if t := child(section, "title"); t != nil {
			title = strings.TrimSpace(t.Text())
		}

		if excludedSection(title) {
			continue
		}

		text := child(section, "text")
		if text == nil {
			continue
		}
		clean := collapseSpace(innerText(text))
		if clean == "" {
			continue
		}
		parts = append(parts, title+": "+clean)
	}

	return strings.Join(parts, "\n")
}

func excludedSection(title string) bool {
	for _, excluded := range excludedNarrativeSections {
		if strings.Contains(title, excluded) {
			return true
		}
	}
	return false
}
