package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Well-known social history categories. The mapping is open: documents may
// contribute any number of additional categories keyed by a slug of the
// observation title.
const (
	SocialTobaccoSmoking   = "tobacco_smoking"
	SocialSmokelessTobacco = "smokeless_tobacco"
	SocialAlcohol          = "alcohol"
)

// SocialHistory is an insertion-ordered mapping from social history category
// to an optional observed value. Order is preserved so repeated runs over the
// same input serialize identically.
type SocialHistory struct {
	keys   []string
	values map[string]*string
}

// NewSocialHistory returns a mapping pre-seeded with the well-known
// categories, each initially unset.
func NewSocialHistory() *SocialHistory {
	s := &SocialHistory{values: make(map[string]*string)}
	s.Set(SocialTobaccoSmoking, nil)
	s.Set(SocialSmokelessTobacco, nil)
	s.Set(SocialAlcohol, nil)
	return s
}

// Set stores a value for a category, keeping the category's original position
// when it is already present.
func (s *SocialHistory) Set(key string, value *string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value for a category and whether the category is present.
func (s *SocialHistory) Get(key string) (*string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the categories in insertion order.
func (s *SocialHistory) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of categories.
func (s *SocialHistory) Len() int {
	return len(s.keys)
}

// Clone returns an independent copy.
func (s *SocialHistory) Clone() *SocialHistory {
	out := &SocialHistory{
		keys:   make([]string, len(s.keys)),
		values: make(map[string]*string, len(s.values)),
	}
	copy(out.keys, s.keys)
	for k, v := range s.values {
		if v != nil {
			val := *v
			out.values[k] = &val
		} else {
			out.values[k] = nil
		}
	}
	return out
}

// MarshalJSON emits the mapping as a JSON object in insertion order.
func (s *SocialHistory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores the mapping from a JSON object. Key order follows
// the document order of the input.
func (s *SocialHistory) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: social history must be a JSON object")
	}
	s.keys = nil
	s.values = make(map[string]*string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var val *string
		if err := dec.Decode(&val); err != nil {
			return err
		}
		s.Set(key, val)
	}
	_, err = dec.Token() // closing brace
	return err
}
