package cda

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/ehr/cdaconvert/internal/domain/record"
)

// ExtractPatientProfile reads the patient demographics from the record
// target of the document header. Missing nodes yield the documented display
// defaults; a missing birth time yields a nil date of birth.
func ExtractPatientProfile(doc *Document) record.PatientProfile {
	profile := record.NewPatientProfile()

	var role *etree.Element
	for _, rt := range descendants(doc.Root(), "recordTarget") {
		if pr := child(rt, "patientRole"); pr != nil {
			role = pr
			break
		}
	}
	if role == nil {
		return profile
	}

	if ids := children(role, "id"); len(ids) > 0 {
		if ext := ids[0].SelectAttrValue("extension", ""); ext != "" {
			profile.NationalID = ext
		}
	}

	if addr := child(role, "addr"); addr != nil {
		var parts []string
		for _, part := range addr.ChildElements() {
			if text := strings.TrimSpace(part.Text()); text != "" {
				parts = append(parts, text)
			}
		}
		profile.Address = strings.Join(parts, ", ")
	}

	for _, telecom := range children(role, "telecom") {
		value := telecom.SelectAttrValue("value", "")
		switch {
		case profile.Phone == "" && strings.HasPrefix(value, "tel:"):
			profile.Phone = strings.TrimPrefix(value, "tel:")
		case profile.Email == "" && strings.HasPrefix(value, "mailto:"):
			profile.Email = strings.TrimPrefix(value, "mailto:")
		}
	}

	patient := child(role, "patient")
	if patient == nil {
		return profile
	}

	if name := legalName(patient); name != nil {
		var given, family []string
		for _, g := range children(name, "given") {
			given = append(given, strings.TrimSpace(g.Text()))
		}
		for _, f := range children(name, "family") {
			family = append(family, strings.TrimSpace(f.Text()))
		}
		profile.FullName = strings.TrimSpace(
			strings.Join(given, " ") + " " + strings.Join(family, " "))
	}

	if gender := child(patient, "administrativeGenderCode"); gender != nil {
		if display := gender.SelectAttrValue("displayName", ""); display != "" {
			profile.Gender = display
		}
	}

	if birth := child(patient, "birthTime"); birth != nil {
		profile.DOB = NormalizeTime(birth.SelectAttrValue("value", ""))
	}

	return profile
}

// legalName prefers a name element with use="L", falling back to the first
// name present.
func legalName(patient *etree.Element) *etree.Element {
	names := children(patient, "name")
	for _, n := range names {
		if n.SelectAttrValue("use", "") == "L" {
			return n
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return nil
}

// ExtractAllergies reads the allergies section. Observations whose substance
// cannot be resolved are dropped; a negated allergy-to-substance observation
// becomes a single "No Known Allergies" entry.
func ExtractAllergies(doc *Document) []record.Allergy {
	allergies := []record.Allergy{}

	section := doc.SectionByCode(LOINCAllergies)
	if section == nil {
		return allergies
	}

	for _, entry := range descendants(section, "entry") {
		for _, act := range children(entry, "act") {
			for _, rel := range children(act, "entryRelationship") {
				for _, obs := range children(rel, "observation") {
					substance := record.Unknown

					if val := child(obs, "value"); val != nil {
						if display := val.SelectAttrValue("displayName", ""); display != "" {
							substance = display
						} else if code := val.SelectAttrValue("code", ""); code != "" &&
							val.SelectAttrValue("nullFlavor", "") == "" {
							substance = code
						}
					}

					if obs.SelectAttrValue("negationInd", "") == "true" {
						if code := child(obs, "code"); code != nil &&
							code.SelectAttrValue("code", "") == snomedAllergyToSubstance {
							substance = NoKnownAllergies
						}
					}

					status := record.Unknown
					if sc := child(obs, "statusCode"); sc != nil {
						if code := sc.SelectAttrValue("code", ""); code != "" {
							status = code
						}
					}

					if substance != record.Unknown {
						allergies = append(allergies, record.Allergy{
							Substance: substance,
							Status:    status,
						})
					}
				}
			}
		}
	}

	return allergies
}

// ExtractMedications reads every substance administration in the document.
// An administration without a manufactured material code is not a medication
// record and is skipped.
func ExtractMedications(doc *Document) []record.Medication {
	meds := []record.Medication{}

	for _, sub := range descendants(doc.Root(), "substanceAdministration") {
		codeEl := manufacturedMaterialCode(sub)
		if codeEl == nil {
			continue
		}

		atc := whoATCTranslation(codeEl)
		var atcCode *string
		if atc != nil {
			if code := atc.SelectAttrValue("code", ""); code != "" {
				atcCode = &code
			}
		}

		// Name: originalText reference, then the code's display name, then
		// the ATC translation's display name.
		name := record.Unknown
		if ref := originalTextReference(codeEl); ref != "" {
			if resolved, ok := doc.ResolveReference(ref); ok {
				name = resolved
			}
		}
		if name == record.Unknown {
			if display := codeEl.SelectAttrValue("displayName", ""); display != "" {
				name = display
			}
		}
		if name == record.Unknown && atc != nil {
			if display := atc.SelectAttrValue("displayName", ""); display != "" {
				name = display
			}
		}

		dosage := ""
		if text := child(sub, "text"); text != nil {
			if ref := child(text, "reference"); ref != nil {
				if resolved, ok := doc.ResolveReference(ref.SelectAttrValue("value", "")); ok {
					dosage = resolved
				}
			}
		}

		var startDate, endDate *string
		if eff := child(sub, "effectiveTime"); eff != nil {
			low := child(eff, "low")
			high := child(eff, "high")
			if low != nil {
				startDate = NormalizeTime(low.SelectAttrValue("value", ""))
			}
			if high != nil {
				endDate = NormalizeTime(high.SelectAttrValue("value", ""))
			}
			if low == nil && high == nil {
				if value := eff.SelectAttrValue("value", ""); value != "" {
					startDate = NormalizeTime(value)
				}
			}
		}

		status := record.Unknown
		if sc := child(sub, "statusCode"); sc != nil {
			if code := sc.SelectAttrValue("code", ""); code != "" {
				status = code
			}
		}

		meds = append(meds, record.Medication{
			Name:      name,
			ATCCode:   atcCode,
			Dosage:    dosage,
			StartDate: startDate,
			EndDate:   endDate,
			Status:    status,
		})
	}

	return meds
}

// manufacturedMaterialCode finds the code of the first manufactured material
// nested under a substance administration.
func manufacturedMaterialCode(sub *etree.Element) *etree.Element {
	for _, product := range descendants(sub, "manufacturedProduct") {
		if material := child(product, "manufacturedMaterial"); material != nil {
			if code := child(material, "code"); code != nil {
				return code
			}
		}
	}
	return nil
}

// whoATCTranslation returns the WHO ATC translation of a code element, if
// present.
func whoATCTranslation(codeEl *etree.Element) *etree.Element {
	for _, tr := range children(codeEl, "translation") {
		if tr.SelectAttrValue("codeSystemName", "") == codeSystemWHOATC {
			return tr
		}
	}
	return nil
}

// originalTextReference returns the reference value of a code element's
// originalText, or "".
func originalTextReference(codeEl *etree.Element) string {
	if orig := child(codeEl, "originalText"); orig != nil {
		if ref := child(orig, "reference"); ref != nil {
			return ref.SelectAttrValue("value", "")
		}
	}
	return ""
}

// ExtractLabResults scans every observation in the document and admits those
// carrying an explicit physical quantity (xsi:type="PQ") value. Labs and
// vitals are interspersed across sections, so the scan is document-wide.
func ExtractLabResults(doc *Document) []record.LabResult {
	results := []record.LabResult{}

	for _, obs := range descendants(doc.Root(), "observation") {
		val := child(obs, "value")
		if val == nil || xsiType(val) != "PQ" {
			continue
		}

		testName := record.Unknown
		if code := child(obs, "code"); code != nil {
			if display := code.SelectAttrValue("displayName", ""); display != "" {
				testName = display
			}
		}

		var resultValue *float64
		if raw := val.SelectAttrValue("value", ""); raw != "" {
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				resultValue = &f
			}
		}

		var unit *string
		if u := val.SelectAttrValue("unit", ""); u != "" {
			unit = &u
		}

		var interpretation *string
		if interp := child(obs, "interpretationCode"); interp != nil {
			if code := interp.SelectAttrValue("code", ""); code != "" {
				label := code
				if name, ok := interpretationNames[code]; ok {
					label = name
				}
				interpretation = &label
			}
		}

		var timestamp *string
		if eff := child(obs, "effectiveTime"); eff != nil {
			timestamp = NormalizeTime(eff.SelectAttrValue("value", ""))
		}

		results = append(results, record.LabResult{
			TestName:       testName,
			ResultValue:    resultValue,
			Unit:           unit,
			Interpretation: interpretation,
			Timestamp:      timestamp,
		})
	}

	return results
}

// ExtractDiagnoses reads the problem list. The primary pass walks the
// problem-list section and accepts any coded observation value; its status
// is the concern status of the enclosing act. When the primary pass finds
// nothing, a fallback pass scans active ACT-class acts for ICD-coded values,
// the convention used by older section-less documents. The two passes have
// genuinely different acceptance criteria and are kept separate.
func ExtractDiagnoses(doc *Document) []record.Diagnosis {
	diagnoses := []record.Diagnosis{}

	if section := doc.SectionByCode(LOINCProblems); section != nil {
		for _, entry := range descendants(section, "entry") {
			for _, act := range children(entry, "act") {
				status := "unknown"
				if sc := child(act, "statusCode"); sc != nil {
					if code := sc.SelectAttrValue("code", ""); code != "" {
						status = code
					}
				}

				for _, rel := range children(act, "entryRelationship") {
					for _, obs := range children(rel, "observation") {
						for _, val := range children(obs, "value") {
							if xsiType(val) != "CD" {
								continue
							}
							code := val.SelectAttrValue("code", "")
							if code == "" {
								continue
							}
							codeSystem := val.SelectAttrValue("codeSystemName", "")

							display := val.SelectAttrValue("displayName", "")
							if display == "" {
								if ref := originalTextReference(val); ref != "" {
									if resolved, ok := doc.ResolveReference(ref); ok {
										display = resolved
									}
								}
							}
							if display == "" {
								display = code
							}

							var onset *string
							if eff := child(obs, "effectiveTime"); eff != nil {
								if low := child(eff, "low"); low != nil {
									onset = NormalizeTime(low.SelectAttrValue("value", ""))
								}
							}

							diagnoses = append(diagnoses, record.Diagnosis{
								Code:        &code,
								CodeSystem:  codeSystem,
								DisplayName: display,
								Status:      status,
								OnsetDate:   onset,
							})
						}
					}
				}
			}
		}
	}

	if len(diagnoses) > 0 {
		return diagnoses
	}

	// Fallback: active ACT-class acts carrying ICD-coded values.
	for _, act := range descendants(doc.Root(), "act") {
		if act.SelectAttrValue("classCode", "") != "ACT" {
			continue
		}
		sc := child(act, "statusCode")
		if sc == nil || sc.SelectAttrValue("code", "") != "active" {
			continue
		}
		for _, rel := range descendants(act, "entryRelationship") {
			for _, obs := range children(rel, "observation") {
				for _, val := range children(obs, "value") {
					if xsiType(val) != "CD" {
						continue
					}
					codeSystem := val.SelectAttrValue("codeSystemName", "")
					if !strings.Contains(codeSystem, "ICD") {
						continue
					}

					var code *string
					if c := val.SelectAttrValue("code", ""); c != "" {
						code = &c
					}
					display := val.SelectAttrValue("displayName", "")
					if display == "" && code != nil {
						display = *code
					}
					if display == "" {
						display = record.Unknown
					}

					diagnoses = append(diagnoses, record.Diagnosis{
						Code:        code,
						CodeSystem:  codeSystem,
						DisplayName: display,
						Status:      "active",
					})
				}
			}
		}
	}

	return diagnoses
}

// ExtractProcedures reads the procedures section. Entries without a code
// element are skipped.
func ExtractProcedures(doc *Document) []record.Procedure {
	procedures := []record.Procedure{}

	section := doc.SectionByCode(LOINCProcedures)
	if section == nil {
		return procedures
	}

	for _, entry := range descendants(section, "entry") {
		for _, proc := range children(entry, "procedure") {
			codeEl := child(proc, "code")
			if codeEl == nil {
				continue
			}

			code := codeEl.SelectAttrValue("code", "")
			codeSystem := codeEl.SelectAttrValue("codeSystemName", "")

			display := codeEl.SelectAttrValue("displayName", "")
			if display == "" {
				if orig := child(codeEl, "originalText"); orig != nil {
					refValue := ""
					if ref := child(orig, "reference"); ref != nil {
						refValue = ref.SelectAttrValue("value", "")
					}
					if refValue != "" {
						if resolved, ok := doc.ResolveReference(refValue); ok {
							display = resolved
						}
					} else {
						display = strings.TrimSpace(innerText(orig))
					}
				}
			}

			var date *string
			if eff := child(proc, "effectiveTime"); eff != nil {
				if value := eff.SelectAttrValue("value", ""); value != "" {
					date = NormalizeTime(value)
				} else if low := child(eff, "low"); low != nil {
					date = NormalizeTime(low.SelectAttrValue("value", ""))
				}
			}

			status := "completed"
			if sc := child(proc, "statusCode"); sc != nil {
				if c := sc.SelectAttrValue("code", ""); c != "" {
					status = c
				}
			}

			if code == "" {
				continue
			}
			name := display
			if name == "" {
				name = code
			}
			procedures = append(procedures, record.Procedure{
				Code:       &code,
				CodeSystem: codeSystem,
				Name:       name,
				Date:       date,
				Status:     status,
			})
		}
	}

	return procedures
}

// ExtractSocialHistory reads the social history section into the open
// category mapping. Known LOINC codes (and title keywords, for documents
// that code them loosely) map to the well-known keys; anything else is keyed
// by a slug of the observation title, or the raw code when no title exists.
func ExtractSocialHistory(doc *Document) *record.SocialHistory {
	history := record.NewSocialHistory()

	section := doc.SectionByCode(LOINCSocialHistory)
	if section == nil {
		return history
	}

	for _, obs := range descendants(section, "observation") {
		codeEl := child(obs, "code")
		if codeEl == nil {
			continue
		}
		code := codeEl.SelectAttrValue("code", "")
		title := codeEl.SelectAttrValue("displayName", "")
		lowerTitle := strings.ToLower(title)

		var value *string
		if val := child(obs, "value"); val != nil {
			v := val.SelectAttrValue("displayName", "")
			if v == "" {
				v = strings.TrimSpace(val.Text())
			}
			if v == "" {
				v = val.SelectAttrValue("code", "")
			}
			if v != "" {
				value = &v
			}
		}

		switch {
		case code == LOINCTobaccoSmokingStatus || strings.Contains(lowerTitle, "tobacco"):
			history.Set(record.SocialTobaccoSmoking, value)
		case code == LOINCTobaccoUseHistory || strings.Contains(lowerTitle, "smokeless"):
			history.Set(record.SocialSmokelessTobacco, value)
		case code == LOINCAlcoholUseHistory || strings.Contains(lowerTitle, "alcohol"):
			history.Set(record.SocialAlcohol, value)
		default:
			key := code
			if title != "" {
				key = strings.ReplaceAll(lowerTitle, " ", "_")
			}
			if key == "" {
				continue
			}
			history.Set(key, value)
		}
	}

	return history
}

// ExtractImmunizations reads the immunizations section. Entries where
// neither a vaccine name nor a code can be resolved are skipped.
func ExtractImmunizations(doc *Document) []record.Immunization {
	immunizations := []record.Immunization{}

	section := doc.SectionByCode(LOINCImmunizations)
	if section == nil {
		return immunizations
	}

	for _, entry := range descendants(section, "entry") {
		for _, admin := range children(entry, "substanceAdministration") {
			name := ""
			code := ""

			if codeEl := manufacturedMaterialCode(admin); codeEl != nil {
				code = codeEl.SelectAttrValue("code", "")
				name = codeEl.SelectAttrValue("displayName", "")

				// The ATC translation overrides the material's own code.
				if atc := whoATCTranslation(codeEl); atc != nil {
					if atcCode := atc.SelectAttrValue("code", ""); atcCode != "" {
						code = atcCode
					}
				}

				if name == "" {
					if ref := originalTextReference(codeEl); ref != "" {
						if resolved, ok := doc.ResolveReference(ref); ok {
							name = resolved
						}
					}
				}
			}

			var date *string
			if eff := child(admin, "effectiveTime"); eff != nil {
				if value := eff.SelectAttrValue("value", ""); value != "" {
					date = NormalizeTime(value)
				} else if low := child(eff, "low"); low != nil {
					date = NormalizeTime(low.SelectAttrValue("value", ""))
				}
			}

			status := "completed"
			if sc := child(admin, "statusCode"); sc != nil {
				if c := sc.SelectAttrValue("code", ""); c != "" {
					status = c
				}
			}

			if name == "" && code == "" {
				continue
			}
			vaccineName := name
			if vaccineName == "" {
				vaccineName = code
			}
			var vaccineCode *string
			if code != "" {
				vaccineCode = &code
			}
			immunizations = append(immunizations, record.Immunization{
				VaccineName: vaccineName,
				VaccineCode: vaccineCode,
				Date:        date,
				Status:      status,
			})
		}
	}

	return immunizations
}
