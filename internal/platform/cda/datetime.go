package cda

import (
	"strings"
	"time"
)

// NormalizeTime converts an HL7 timestamp ("YYYYMMDDHHMMSS+0200" or
// "YYYYMMDD") to an ISO 8601 local string. It is total: empty input yields
// nil, and anything that does not parse is returned unchanged rather than
// reported as an error. Timezone offsets are stripped, not converted.
func NormalizeTime(raw string) *string {
	if raw == "" {
		return nil
	}

	cleaned := raw
	if i := strings.IndexByte(cleaned, '+'); i >= 0 {
		cleaned = cleaned[:i]
	}

	switch {
	case len(cleaned) >= 14:
		t, err := time.Parse("20060102150405", cleaned[:14])
		if err != nil {
			return &raw
		}
		s := t.Format("2006-01-02T15:04:05")
		return &s
	case len(cleaned) == 8:
		t, err := time.Parse("20060102", cleaned)
		if err != nil {
			return &raw
		}
		s := t.Format("2006-01-02T15:04:05")
		return &s
	default:
		return &raw
	}
}
