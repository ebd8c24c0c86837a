package changes

import (
	"sort"

	"storewatch/pkg/models"
)

// DetectChanges diffs two indexes into a ChangeReport. Output lists are
// sorted by key, so the report is identical no matter what order either
// run's records were scraped in.
func DetectChanges(prev, curr Index) *models.ChangeReport {
	report := &models.ChangeReport{
		New:      []string{},
		Closed:   []string{},
		Modified: []models.FieldChange{},
	}

	for key, currRecord := range curr {
		prevRecord, existed := prev[key]
		if !existed {
			report.New = append(report.New, key)
			continue
		}
		changed := changedFields(prevRecord.Fields(), currRecord.Fields())
		if len(changed) > 0 {
			report.Modified = append(report.Modified, models.FieldChange{
				Key:           key,
				ChangedFields: changed,
			})
		} else {
			report.UnchangedCount++
		}
	}

	for key := range prev {
		if _, stillOpen := curr[key]; !stillOpen {
			report.Closed = append(report.Closed, key)
		}
	}

	sortStrings(report.New)
	sortStrings(report.Closed)
	sort.Slice(report.Modified, func(i, j int) bool {
		return report.Modified[i].Key < report.Modified[j].Key
	})

	return report
}

// changedFields returns the sorted names of non-volatile fields that differ
// between two records, including fields present on only one side.
func changedFields(prev, curr map[string]string) []string {
	var changed []string
	for name, prevValue := range prev {
		if currValue, ok := curr[name]; !ok || currValue != prevValue {
			changed = append(changed, name)
		}
	}
	for name := range curr {
		if _, ok := prev[name]; !ok {
			changed = append(changed, name)
		}
	}
	sortStrings(changed)
	return changed
}

func sortStrings(s []string) {
	sort.Strings(s)
}
