// Package record defines the consolidated health record produced by the
// converter: the typed clinical facts extracted from a document set, the
// single HealthRecord aggregate that owns them, and the helpers that merge
// and order them. All types are plain value records; the redaction layer
// replaces them wholesale rather than mutating them in place.
package record

// Unknown is the display sentinel used where the source documents carry no
// resolvable value for a required display field.
const Unknown = "Unknown"

// PatientProfile holds the patient demographics from the summary document.
// DOB is nil when the document carries no birth time. Age is a derived field
// populated only by the privacy layer.
type PatientProfile struct {
	FullName   string  `json:"full_name"`
	NationalID string  `json:"national_id"`
	Gender     string  `json:"gender"`
	DOB        *string `json:"dob"`
	Age        *int    `json:"age,omitempty"`
	Address    string  `json:"address"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
}

// NewPatientProfile returns a profile with the documented display defaults.
func NewPatientProfile() PatientProfile {
	return PatientProfile{
		FullName:   Unknown,
		NationalID: Unknown,
		Gender:     Unknown,
	}
}

// Allergy is a single allergy assertion. A negated "allergy to substance"
// observation is represented with the substance "No Known Allergies".
type Allergy struct {
	Substance string `json:"substance"`
	Status    string `json:"status"`
}

// Medication is one substance administration. StartDate and EndDate are nil
// when the document provides no effective-time bound.
type Medication struct {
	Name      string  `json:"name"`
	ATCCode   *string `json:"atc_code"`
	Dosage    string  `json:"dosage"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Status    string  `json:"status"`
}

// LabResult is a quantitative observation (labs and vitals alike).
type LabResult struct {
	TestName       string   `json:"test_name"`
	ResultValue    *float64 `json:"result_value"`
	Unit           *string  `json:"unit"`
	Interpretation *string  `json:"interpretation"`
	ReferenceRange *string  `json:"reference_range"`
	Timestamp      *string  `json:"timestamp"`
}

// Diagnosis is one problem-list entry. Status carries the concern status of
// the enclosing act, not a per-observation status.
type Diagnosis struct {
	Code        *string `json:"code"`
	CodeSystem  string  `json:"code_system"`
	DisplayName string  `json:"display_name"`
	Status      string  `json:"status"`
	OnsetDate   *string `json:"onset_date"`
}

// Procedure is one entry from the procedures section.
type Procedure struct {
	Code       *string `json:"code"`
	CodeSystem string  `json:"code_system"`
	Name       string  `json:"name"`
	Date       *string `json:"date"`
	Status     string  `json:"status"`
}

// Immunization is one vaccination record.
type Immunization struct {
	VaccineName string  `json:"vaccine_name"`
	VaccineCode *string `json:"vaccine_code"`
	Date        *string `json:"date"`
	Status      string  `json:"status"`
}

// DocumentSummary is the narrative view of a single source document: its
// date, type, authoring provider, and the free-text sections that are not
// already captured by the structured extractors.
type DocumentSummary struct {
	Date       *string `json:"date"`
	Type       string  `json:"type"`
	Provider   string  `json:"provider"`
	Notes      string  `json:"notes"`
	SourceFile string  `json:"source_file"`
}

// ClinicalSummary groups the allergy list and the partitioned medications.
type ClinicalSummary struct {
	Allergies         []Allergy    `json:"allergies"`
	ActiveMedications []Medication `json:"active_medications"`
	MedicationHistory []Medication `json:"medication_history"`
}

// HealthRecord is the root aggregate: exactly one per conversion run. It
// exclusively owns every nested collection.
type HealthRecord struct {
	PatientProfile  PatientProfile    `json:"patient_profile"`
	ClinicalSummary ClinicalSummary   `json:"clinical_summary"`
	Diagnoses       []Diagnosis       `json:"diagnoses"`
	Procedures      []Procedure       `json:"procedures"`
	Immunizations   []Immunization    `json:"immunizations"`
	SocialHistory   *SocialHistory    `json:"social_history"`
	LabResults      []LabResult       `json:"lab_results"`
	Encounters      []DocumentSummary `json:"encounters"`
}

// NewHealthRecord returns an empty record with every collection initialized,
// so an input with no extractable data still serializes with empty lists
// rather than nulls.
func NewHealthRecord() *HealthRecord {
	return &HealthRecord{
		PatientProfile: NewPatientProfile(),
		ClinicalSummary: ClinicalSummary{
			Allergies:         []Allergy{},
			ActiveMedications: []Medication{},
			MedicationHistory: []Medication{},
		},
		Diagnoses:     []Diagnosis{},
		Procedures:    []Procedure{},
		Immunizations: []Immunization{},
		SocialHistory: NewSocialHistory(),
		LabResults:    []LabResult{},
		Encounters:    []DocumentSummary{},
	}
}
