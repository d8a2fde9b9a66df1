package rules

import (
	"sort"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
)

// MinRecurrence is the number of occurrences that makes a fault type recurring.
const MinRecurrence = 2

// DetectRecurrence groups dated real faults by type label and returns the
// types seen at least MinRecurrence times. Callers pass faults already
// restricted to the recurrence window.
//
// Groups are ordered by count, then by most recent occurrence, then by label.
func DetectRecurrence(faults []*domain.FaultRecord) []domain.RecurringFault {
	groups := make(map[string]*domain.RecurringFault)
	for _, f := range faults {
		if f == nil || !f.IsRealFault() || !f.HasDate {
			continue
		}
		g, ok := groups[f.Label]
		if !ok {
			g = &domain.RecurringFault{Type: f.Label}
			groups[f.Label] = g
		}
		g.Count++
		if f.Date.After(g.LastOccurrence) {
			g.LastOccurrence = f.Date
		}
	}

	result := make([]domain.RecurringFault, 0, len(groups))
	for _, g := range groups {
		if g.Count >= MinRecurrence {
			result = append(result, *g)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		if !result[i].LastOccurrence.Equal(result[j].LastOccurrence) {
			return result[i].LastOccurrence.After(result[j].LastOccurrence)
		}
		return result[i].Type < result[j].Type
	})

	return result
}

// withinDays reports whether t falls in the window of the last days days.
func withinDays(t, now time.Time, days int) bool {
	return !t.Before(now.AddDate(0, 0, -days))
}
