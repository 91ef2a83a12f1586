package hipaa

import (
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/cdaconvert/internal/domain/record"
)

func strp(s string) *string { return &s }

func testRecord() *record.HealthRecord {
	rec := record.NewHealthRecord()
	rec.PatientProfile = record.PatientProfile{
		FullName:   "John William Doe",
		NationalID: "010190-123A",
		Gender:     "Male",
		DOB:        strp("1990-01-15T00:00:00"),
		Address:    "Mannerheimintie 1, 00100, Helsinki",
		Phone:      "+358401234567",
		Email:      "john.doe@example.com",
	}
	rec.ClinicalSummary.ActiveMedications = []record.Medication{
		{Name: "Ibuprofen", ATCCode: strp("M01AE01"), Status: "active"},
	}
	rec.Encounters = []record.DocumentSummary{
		{
			Date:       strp("2024-05-19T00:00:00"),
			Type:       "Käyntiteksti",
			Provider:   "Maija Virtanen",
			Notes:      "Patient presented with persistent cough.",
			SourceFile: "DOC0007.XML",
		},
	}
	return rec
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"full", "redacted", "strict"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("paranoid"); err == nil {
		t.Error("ParseLevel should reject unknown levels")
	}
	if _, err := ParseLevel(""); err == nil {
		t.Error("ParseLevel should reject the empty string")
	}
}

func TestApplyFullKeepsEverything(t *testing.T) {
	rec := testRecord()
	out := Apply(zerolog.Nop(), rec, LevelFull)

	if !reflect.DeepEqual(out, rec) {
		t.Errorf("full level must not change content:\n got %+v\nwant %+v", out, rec)
	}
	if out == rec {
		t.Error("Apply must return a copy even at level full")
	}
}

func TestApplyRedactedRemovesIdentifiersKeepsNotes(t *testing.T) {
	rec := testRecord()
	out := Apply(zerolog.Nop(), rec, LevelRedacted)

	p := out.PatientProfile
	for field, got := range map[string]string{
		"FullName":   p.FullName,
		"NationalID": p.NationalID,
		"Address":    p.Address,
		"Phone":      p.Phone,
		"Email":      p.Email,
	} {
		if got != Redacted {
			t.Errorf("%s = %q, want %q", field, got, Redacted)
		}
	}
	if p.Gender != "Male" {
		t.Errorf("Gender should survive redaction, got %q", p.Gender)
	}
	if p.DOB == nil || *p.DOB != Redacted {
		t.Errorf("DOB = %v, want marker", p.DOB)
	}
	if p.Age == nil {
		t.Error("redacted level must derive age from dob")
	}

	enc := out.Encounters[0]
	if enc.Provider != Redacted {
		t.Errorf("Provider = %q", enc.Provider)
	}
	if enc.Notes != "Patient presented with persistent cough." {
		t.Errorf("redacted level must keep notes, got %q", enc.Notes)
	}
	if enc.Date == nil || *enc.Date != "2024-05-19T00:00:00" {
		t.Errorf("redacted level must keep full dates, got %v", enc.Date)
	}

	if out.ClinicalSummary.ActiveMedications[0].Name != "Ibuprofen" {
		t.Error("clinical content must survive redaction")
	}
}

func TestApplyStrictDropsNotesAndGeneralizesDates(t *testing.T) {
	rec := testRecord()
	out := Apply(zerolog.Nop(), rec, LevelStrict)

	p := out.PatientProfile
	if p.DOB == nil || *p.DOB != Redacted {
		t.Errorf("DOB = %v, want marker", p.DOB)
	}
	if p.Age != nil {
		t.Errorf("strict level must not expose age, got %d", *p.Age)
	}

	enc := out.Encounters[0]
	if enc.Notes != "" {
		t.Errorf("strict level must drop notes, got %q", enc.Notes)
	}
	if enc.Date == nil || *enc.Date != "2024-05" {
		t.Errorf("Date = %v, want generalized 2024-05", enc.Date)
	}
}

func TestApplyStrictWritesMarkerWithoutDOB(t *testing.T) {
	rec := testRecord()
	rec.PatientProfile.DOB = nil
	out := Apply(zerolog.Nop(), rec, LevelStrict)

	if out.PatientProfile.DOB == nil || *out.PatientProfile.DOB != Redacted {
		t.Errorf("strict DOB marker missing, got %v", out.PatientProfile.DOB)
	}
}

func TestApplyRedactedLeavesMissingDOBAlone(t *testing.T) {
	rec := testRecord()
	rec.PatientProfile.DOB = nil
	out := Apply(zerolog.Nop(), rec, LevelRedacted)

	if out.PatientProfile.DOB != nil {
		t.Errorf("DOB = %q, want nil", *out.PatientProfile.DOB)
	}
	if out.PatientProfile.Age != nil {
		t.Errorf("Age = %d, want nil without a dob", *out.PatientProfile.Age)
	}
}

func TestApplyNeverMutatesInput(t *testing.T) {
	for _, level := range []Level{LevelFull, LevelRedacted, LevelStrict} {
		rec := testRecord()
		want := testRecord()

		Apply(zerolog.Nop(), rec, level)

		if !reflect.DeepEqual(rec, want) {
			t.Errorf("level %s mutated the input record", level)
		}
	}
}

// Moving from redacted to strict must only ever remove information.
func TestStrictIsMonotonicallyStricter(t *testing.T) {
	rec := testRecord()
	redacted := Apply(zerolog.Nop(), rec, LevelRedacted)
	strict := Apply(zerolog.Nop(), rec, LevelStrict)

	if redacted.Encounters[0].Notes == "" {
		t.Fatal("test premise broken: redacted should keep notes")
	}
	if strict.Encounters[0].Notes != "" {
		t.Error("strict kept notes that redacted exposes")
	}
	if strict.PatientProfile.Age != nil {
		t.Error("strict exposed age")
	}
	if len(*strict.Encounters[0].Date) > len(*redacted.Encounters[0].Date) {
		t.Error("strict date is more precise than redacted date")
	}
}

func TestAgeAt(t *testing.T) {
	today := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dob  string
		want int // -1 means nil expected
	}{
		{name: "full date before birthday", dob: "1990-08-20", want: 33},
		{name: "full date after birthday", dob: "1990-01-15", want: 34},
		{name: "birthday today", dob: "1990-06-15", want: 34},
		{name: "iso datetime", dob: "1990-01-15T00:00:00", want: 34},
		{name: "year only", dob: "1990", want: 34},
		{name: "year month before", dob: "1990-08", want: 33},
		{name: "year month after", dob: "1990-03", want: 34},
		{name: "empty", dob: "", want: -1},
		{name: "garbage", dob: "15.1.1990", want: -1},
		{name: "too short", dob: "199", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ageAt(tt.dob, today)
			if tt.want == -1 {
				if got != nil {
					t.Fatalf("ageAt(%q) = %d, want nil", tt.dob, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ageAt(%q) = nil, want %d", tt.dob, tt.want)
			}
			if *got != tt.want {
				t.Errorf("ageAt(%q) = %d, want %d", tt.dob, *got, tt.want)
			}
		})
	}
}

func TestCalculateAgeUnparseableYieldsNil(t *testing.T) {
	if got := CalculateAge(zerolog.Nop(), "not-a-date"); got != nil {
		t.Errorf("CalculateAge = %d, want nil", *got)
	}
}

func TestGeneralizeDate(t *testing.T) {
	tests := []struct {
		name string
		in   *string
		to   Precision
		want string // "" means nil expected
	}{
		{name: "nil", in: nil, to: PrecisionYear, want: ""},
		{name: "empty", in: strp(""), to: PrecisionYearMonth, want: ""},
		{name: "year", in: strp("2024-05-19T00:00:00"), to: PrecisionYear, want: "2024"},
		{name: "year month", in: strp("2024-05-19T00:00:00"), to: PrecisionYearMonth, want: "2024-05"},
		{name: "short input year month", in: strp("2024"), to: PrecisionYearMonth, want: "2024"},
		{name: "already year", in: strp("2024"), to: PrecisionYear, want: "2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GeneralizeDate(tt.in, tt.to)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("GeneralizeDate = %q, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("GeneralizeDate = nil, want %q", tt.want)
			}
			if *got != tt.want {
				t.Errorf("GeneralizeDate = %q, want %q", *got, tt.want)
			}
		})
	}
}

func TestGeneralizeDateDoesNotAliasInput(t *testing.T) {
	in := strp("2024-05-19T00:00:00")
	GeneralizeDate(in, PrecisionYear)
	if *in != "2024-05-19T00:00:00" {
		t.Errorf("input mutated to %q", *in)
	}
}
