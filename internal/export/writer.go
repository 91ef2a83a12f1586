// Package export serializes a consolidated health record to its JSON
// destination, wrapped in a metadata envelope identifying the schema
// version, the applied privacy level, and the generating run.
package export

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/cdaconvert/internal/domain/record"
)

// SchemaVersion tags the structure of the output document. Bump on any
// incompatible change to the record shape.
const SchemaVersion = "1.0.0"

// Envelope is the output document: metadata fields (underscore-prefixed so
// they sort ahead of the payload) plus the record itself.
type Envelope struct {
	SchemaVersion string               `json:"_schema_version"`
	PrivacyLevel  string               `json:"_privacy_level"`
	GeneratedAt   string               `json:"_generated_at"`
	Generator     string               `json:"_generator"`
	RunID         string               `json:"_run_id"`
	HealthRecord  *record.HealthRecord `json:"health_record"`
}

// Writer serializes health records for a given generator identity.
type Writer struct {
	generator string
	now       func() time.Time
}

// NewWriter returns a Writer that stamps envelopes with the given generator
// identifier (e.g. "cdaconvert/1.0.0").
func NewWriter(generator string) *Writer {
	return &Writer{generator: generator, now: time.Now}
}

// WriteFile serializes the record to path as indented JSON and returns the
// envelope that was written. A destination that cannot be written yields an
// OutputError.
func (w *Writer) WriteFile(path string, rec *record.HealthRecord, privacyLevel string) (*Envelope, error) {
	env := &Envelope{
		SchemaVersion: SchemaVersion,
		PrivacyLevel:  privacyLevel,
		GeneratedAt:   w.now().UTC().Format("2006-01-02T15:04:05Z"),
		Generator:     w.generator,
		RunID:         uuid.NewString(),
		HealthRecord:  rec,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, &record.OutputError{Err: err}
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, &record.OutputError{Err: err}
	}
	return env, nil
}
