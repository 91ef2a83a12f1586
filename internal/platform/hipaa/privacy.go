// Package hipaa applies privacy transformations to consolidated health
// records before export: tiered redaction of direct identifiers, age
// derivation from date of birth, and date generalization. It also provides
// the optional database-backed export audit trail.
package hipaa

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/cdaconvert/internal/domain/record"
)

// Redacted replaces every suppressed identifier in the output.
const Redacted = "[REDACTED]"

// Level selects how much identifying detail survives into the output.
type Level string

const (
	// LevelFull keeps every identifier. Personal use only.
	LevelFull Level = "full"
	// LevelRedacted removes direct identifiers but keeps clinical notes.
	LevelRedacted Level = "redacted"
	// LevelStrict additionally drops notes and generalizes dates, for
	// output that may leave the local machine.
	LevelStrict Level = "strict"
)

// ParseLevel validates a privacy level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelFull, LevelRedacted, LevelStrict:
		return Level(s), nil
	default:
		return "", fmt.Errorf("invalid privacy level %q (expected full, redacted, or strict)", s)
	}
}

// Precision selects the target granularity for date generalization.
type Precision string

const (
	PrecisionYear      Precision = "year"
	PrecisionYearMonth Precision = "year-month"
)

// Apply returns a privacy-transformed deep copy of rec. The input record is
// never mutated, whatever the level.
func Apply(log zerolog.Logger, rec *record.HealthRecord, level Level) *record.HealthRecord {
	out := rec.Clone()

	if level == LevelFull {
		warnLevel(log, level)
		return out
	}

	redactProfile(log, &out.PatientProfile, level)
	for i := range out.Encounters {
		redactEncounter(&out.Encounters[i], level)
	}

	warnLevel(log, level)
	return out
}

func redactProfile(log zerolog.Logger, profile *record.PatientProfile, level Level) {
	if profile.FullName != "" {
		profile.FullName = Redacted
	}
	if profile.NationalID != "" {
		profile.NationalID = Redacted
	}
	if profile.Address != "" {
		profile.Address = Redacted
	}
	if profile.Phone != "" {
		profile.Phone = Redacted
	}
	if profile.Email != "" {
		profile.Email = Redacted
	}

	switch level {
	case LevelRedacted:
		if profile.DOB != nil && *profile.DOB != "" {
			profile.Age = CalculateAge(log, *profile.DOB)
			marker := Redacted
			profile.DOB = &marker
		}
	case LevelStrict:
		// The marker is written even when no dob was extracted, and age is
		// never exposed.
		marker := Redacted
		profile.DOB = &marker
		profile.Age = nil
	}
}

func redactEncounter(enc *record.DocumentSummary, level Level) {
	if enc.Provider != "" {
		enc.Provider = Redacted
	}
	if level == LevelStrict {
		enc.Notes = ""
		enc.Date = GeneralizeDate(enc.Date, PrecisionYearMonth)
	}
}

// CalculateAge derives age in years from a date of birth string. Year-only
// ("1990") and year-month ("1985-06") partial dates are supported; for full
// dates the age is reduced by one when the birthday has not yet occurred
// this year. An unparseable dob yields nil, logged at warning level.
func CalculateAge(log zerolog.Logger, dob string) *int {
	age := ageAt(dob, time.Now())
	if age == nil && dob != "" {
		log.Warn().Str("dob", dob).Msg("could not parse dob for age calculation")
	}
	return age
}

func ageAt(dob string, today time.Time) *int {
	if dob == "" {
		return nil
	}

	if len(dob) == 4 {
		year, err := strconv.Atoi(dob)
		if err != nil {
			return nil
		}
		age := today.Year() - year
		return &age
	}

	var birth time.Time
	var err error
	if len(dob) == 7 {
		birth, err = time.Parse("2006-01", dob)
	} else {
		if len(dob) < 10 {
			return nil
		}
		birth, err = time.Parse("2006-01-02", dob[:10])
	}
	if err != nil {
		return nil
	}

	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() ||
		(today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return &age
}

// GeneralizeDate truncates a date string to the requested precision: the
// first 4 characters for year, the first 7 for year-month (or 4 when the
// string is too short). Nil or empty input yields nil.
func GeneralizeDate(date *string, to Precision) *string {
	if date == nil || *date == "" {
		return nil
	}
	d := *date

	truncate := func(n int) *string {
		if len(d) > n {
			d = d[:n]
		}
		return &d
	}

	switch to {
	case PrecisionYear:
		return truncate(4)
	case PrecisionYearMonth:
		if len(d) >= 7 {
			return truncate(7)
		}
		return truncate(4)
	default:
		return &d
	}
}

// warnLevel emits the operator-facing notice for the applied level. The full
// tier gets a loud banner: its output contains every identifier found in the
// source documents.
func warnLevel(log zerolog.Logger, level Level) {
	switch level {
	case LevelFull:
		log.Warn().Msg("============================================================")
		log.Warn().Msg("PRIVACY WARNING: full mode enabled")
		log.Warn().Msg("output contains ALL personal identifiers:")
		log.Warn().Msg("  - full name, national id, address, phone, email")
		log.Warn().Msg("  - unredacted clinical notes")
		log.Warn().Msg("do NOT upload this output to cloud services")
		log.Warn().Msg("============================================================")
	case LevelRedacted:
		log.Info().Msg("privacy: redacted mode (direct identifiers removed, notes preserved)")
		log.Warn().Msg("free-text notes may still contain identifying information; use strict for cloud upload")
	case LevelStrict:
		log.Info().Msg("privacy: strict mode (all identifiers removed, notes dropped, dates generalized)")
	}
}
