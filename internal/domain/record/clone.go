package record

// Clone returns a deep copy of the record: no pointer or slice is shared with
// the receiver, so transforming the copy never touches the original.
func (r *HealthRecord) Clone() *HealthRecord {
	out := &HealthRecord{
		PatientProfile: r.PatientProfile,
		ClinicalSummary: ClinicalSummary{
			Allergies:         append([]Allergy{}, r.ClinicalSummary.Allergies...),
			ActiveMedications: cloneMedications(r.ClinicalSummary.ActiveMedications),
			MedicationHistory: cloneMedications(r.ClinicalSummary.MedicationHistory),
		},
		Diagnoses:     make([]Diagnosis, len(r.Diagnoses)),
		Procedures:    make([]Procedure, len(r.Procedures)),
		Immunizations: make([]Immunization, len(r.Immunizations)),
		LabResults:    make([]LabResult, len(r.LabResults)),
		Encounters:    make([]DocumentSummary, len(r.Encounters)),
	}

	out.PatientProfile.DOB = cloneString(r.PatientProfile.DOB)
	out.PatientProfile.Age = cloneInt(r.PatientProfile.Age)

	for i, d := range r.Diagnoses {
		d.Code = cloneString(d.Code)
		d.OnsetDate = cloneString(d.OnsetDate)
		out.Diagnoses[i] = d
	}
	for i, p := range r.Procedures {
		p.Code = cloneString(p.Code)
		p.Date = cloneString(p.Date)
		out.Procedures[i] = p
	}
	for i, im := range r.Immunizations {
		im.VaccineCode = cloneString(im.VaccineCode)
		im.Date = cloneString(im.Date)
		out.Immunizations[i] = im
	}
	for i, l := range r.LabResults {
		l.ResultValue = cloneFloat(l.ResultValue)
		l.Unit = cloneString(l.Unit)
		l.Interpretation = cloneString(l.Interpretation)
		l.ReferenceRange = cloneString(l.ReferenceRange)
		l.Timestamp = cloneString(l.Timestamp)
		out.LabResults[i] = l
	}
	for i, e := range r.Encounters {
		e.Date = cloneString(e.Date)
		out.Encounters[i] = e
	}

	if r.SocialHistory != nil {
		out.SocialHistory = r.SocialHistory.Clone()
	} else {
		out.SocialHistory = NewSocialHistory()
	}

	return out
}

func cloneMedications(meds []Medication) []Medication {
	out := make([]Medication, len(meds))
	for i, m := range meds {
		m.ATCCode = cloneString(m.ATCCode)
		m.StartDate = cloneString(m.StartDate)
		m.EndDate = cloneString(m.EndDate)
		out[i] = m
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
