package cda

// LOINC codes identifying the structured sections of a CDA document body.
const (
	LOINCAllergies     = "48765-2"
	LOINCMedications   = "10160-0"
	LOINCProblems      = "11450-4"
	LOINCProcedures    = "47519-4"
	LOINCResults       = "30954-2"
	LOINCVitalSigns    = "8716-3"
	LOINCImmunizations = "11369-6"
	LOINCSocialHistory = "29762-2"
)

// LOINC codes for individual social history observations.
const (
	LOINCTobaccoSmokingStatus = "72166-2"
	LOINCTobaccoUseHistory    = "11367-0"
	LOINCAlcoholUseHistory    = "11331-6"
)

// SNOMED CT concept asserted (negated) on "no known allergies" observations.
const snomedAllergyToSubstance = "419199007"

// Code system name of the WHO ATC drug classification in translation
// elements.
const codeSystemWHOATC = "WHO ATC"

// NoKnownAllergies is the substance emitted for a negated allergy-to-
// substance observation.
const NoKnownAllergies = "No Known Allergies"

// interpretationNames maps HL7 interpretation codes to readable labels.
// Codes outside this table pass through unchanged.
var interpretationNames = map[string]string{
	"H": "High",
	"L": "Low",
	"A": "Abnormal",
	"N": "Normal",
}

// excludedNarrativeSections lists section titles (Finnish first, then their
// English equivalents) whose content is already covered by the structured
// extractors and therefore skipped when collecting narrative notes. Matching
// is by substring, since exported titles vary around these stems.
var excludedNarrativeSections = []string{
	"Lääkkeet",
	"Tulokset",
	"Rokotukset",
	"Allergiat",
	"Aktiiviset tarpeet/diagnoosit",
	"Viimeisimmät tallennetut peruselintoiminnot",
	"Hoito-ohjelma",
	"Käyntisyyt",
	"Palvelukontaktit",
	"Annetut lääkkeet",
	"Toimenpiteet",
	"Omatiimit",
	"Merkintä kohteesta Apotti",
	"Määrätyt reseptit",
	"Elintapahistoria",

	"Medications",
	"Results",
	"Immunizations",
	"Allergies",
	"Problem List",
	"Vitals",
	"Care Plan",
	"Encounters",
	"Procedures",
	"Care Teams",
}
