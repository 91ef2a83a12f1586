package record

import "sort"

// undatedSentinel makes entries without a date sort after every dated entry
// in a newest-first ordering.
const undatedSentinel = "1900-01-01"

// PartitionMedications splits medications into active and historical. A
// medication is active when its status is "active" or it has no end date;
// everything else is history.
func PartitionMedications(meds []Medication) (active, history []Medication) {
	active = []Medication{}
	history = []Medication{}
	for _, m := range meds {
		if m.Status == "active" || m.EndDate == nil {
			active = append(active, m)
		} else {
			history = append(history, m)
		}
	}
	return active, history
}

// SortEncountersNewestFirst orders document summaries by date descending.
// Undated entries sort last. The sort is stable so files that share a date
// keep their lexicographic input order.
func SortEncountersNewestFirst(encounters []DocumentSummary) {
	key := func(d *DocumentSummary) string {
		if d.Date == nil || *d.Date == "" {
			return undatedSentinel
		}
		return *d.Date
	}
	sort.SliceStable(encounters, func(i, j int) bool {
		return key(&encounters[i]) > key(&encounters[j])
	})
}
