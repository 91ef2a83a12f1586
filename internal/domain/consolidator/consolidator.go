// Package consolidator orchestrates a conversion run: it lists the clinical
// documents in a directory, extracts the structured clinical data from the
// designated summary document, collects a narrative summary from every
// document, and merges the results into one HealthRecord.
package consolidator

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/cdaconvert/internal/domain/record"
	"github.com/ehr/cdaconvert/internal/platform/cda"
)

// DefaultSummaryFile is the conventional name of the export's summary
// document, the sole source of the structured clinical data.
const DefaultSummaryFile = "DOC0001.XML"

// Clinical document files carry the DOC prefix; everything else in an export
// directory (METADATA.XML, stylesheets) is ignored.
const (
	documentPrefix = "DOC"
	documentSuffix = ".XML"
)

// Consolidator merges a directory of CDA documents into one health record.
type Consolidator struct {
	log         zerolog.Logger
	summaryFile string
	failFast    bool
}

// New returns a Consolidator. summaryFile falls back to DefaultSummaryFile
// when empty. Under failFast the first document failure aborts the run;
// otherwise failures are logged and the document is skipped.
func New(log zerolog.Logger, summaryFile string, failFast bool) *Consolidator {
	if summaryFile == "" {
		summaryFile = DefaultSummaryFile
	}
	return &Consolidator{log: log, summaryFile: summaryFile, failFast: failFast}
}

// Consolidate processes every clinical document in dir and returns the
// merged record. It fails with an InputError when the directory is missing
// or holds no clinical documents, and with a ParseError when failFast is set
// and a document cannot be parsed.
func (c *Consolidator) Consolidate(dir string) (*record.HealthRecord, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, record.NewInputError("directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, record.NewInputError("not a directory: %s", dir)
	}

	files, err := listDocuments(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, record.NewInputError("no clinical document files found in: %s", dir)
	}

	rec := record.NewHealthRecord()

	summaryPath := filepath.Join(dir, c.summaryFile)
	if _, err := os.Stat(summaryPath); err == nil {
		c.log.Info().Str("file", summaryPath).Msg("processing summary file")
		if err := c.extractStructured(summaryPath, rec); err != nil {
			if c.failFast {
				return nil, err
			}
			c.log.Error().Err(err).Str("file", summaryPath).
				Msg("failed to process summary file")
		}
	} else {
		c.log.Warn().Str("file", summaryPath).Msg("summary file not found")
	}

	c.log.Info().Int("files", len(files)).Msg("processing files for encounter narratives")
	encounters := []record.DocumentSummary{}
	for _, name := range files {
		path := filepath.Join(dir, name)
		doc, err := parseFile(path)
		if err != nil {
			if c.failFast {
				return nil, &record.ParseError{File: path, Err: err}
			}
			c.log.Warn().Err(err).Str("file", name).Msg("skipping document")
			continue
		}
		encounters = append(encounters, cda.ExtractDocumentSummary(doc, name))
	}

	record.SortEncountersNewestFirst(encounters)
	rec.Encounters = encounters
	c.log.Info().Int("encounters", len(encounters)).Msg("extracted encounters")

	return rec, nil
}

// extractStructured runs every structured extractor against the summary
// document. A parse failure discards the summary contribution wholesale;
// there is no partial merge.
func (c *Consolidator) extractStructured(path string, rec *record.HealthRecord) error {
	doc, err := parseFile(path)
	if err != nil {
		return &record.ParseError{File: path, Err: err}
	}

	rec.PatientProfile = cda.ExtractPatientProfile(doc)
	rec.ClinicalSummary.Allergies = cda.ExtractAllergies(doc)

	meds := cda.ExtractMedications(doc)
	rec.ClinicalSummary.ActiveMedications, rec.ClinicalSummary.MedicationHistory =
		record.PartitionMedications(meds)
	c.log.Debug().
		Int("active", len(rec.ClinicalSummary.ActiveMedications)).
		Int("history", len(rec.ClinicalSummary.MedicationHistory)).
		Msg("extracted medications")

	rec.LabResults = cda.ExtractLabResults(doc)
	c.log.Debug().Int("results", len(rec.LabResults)).Msg("extracted lab results")

	rec.Diagnoses = cda.ExtractDiagnoses(doc)
	c.log.Debug().Int("diagnoses", len(rec.Diagnoses)).Msg("extracted diagnoses")

	rec.Procedures = cda.ExtractProcedures(doc)
	rec.Immunizations = cda.ExtractImmunizations(doc)
	rec.SocialHistory = cda.ExtractSocialHistory(doc)

	return nil
}

func parseFile(path string) (*cda.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cda.Parse(data)
}

// listDocuments returns the clinical document file names in dir, sorted
// lexicographically. The DOC prefix and .XML suffix are matched without
// regard to case.
func listDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, record.NewInputError("cannot read directory %s: %v", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		upper := strings.ToUpper(entry.Name())
		if strings.HasPrefix(upper, documentPrefix) && strings.HasSuffix(upper, documentSuffix) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
