package rules

import (
	"fmt"
)

// Recommendation texts.
const (
	RecommendUrgent      = "Urgent preventive intervention recommended"
	RecommendReturn      = "Prioritize return to service"
	RecommendContract    = "Propose a maintenance contract"
	RecommendPatterns    = "Analyze fault patterns over the last 30 days"
	RecommendRoutine     = "Continue regular preventive maintenance"
	RecommendNoData      = "insufficient data"
	recommendRootCauseFm = "Investigate the root cause of recurring %q faults"
)

// Recommend maps already computed state to an ordered list of action items.
// The list is never empty.
func Recommend(score int, s *State) []string {
	var recs []string

	if score >= CriticalThreshold {
		recs = append(recs, RecommendUrgent)
	}
	if len(s.Recurring) > 0 {
		recs = append(recs, fmt.Sprintf(recommendRootCauseFm, s.Recurring[0].Type))
	}
	if s.OutOfService {
		recs = append(recs, RecommendReturn)
	}
	if !s.UnderContract {
		recs = append(recs, RecommendContract)
	}
	if s.FaultCount30d >= 3 {
		recs = append(recs, RecommendPatterns)
	}

	if len(recs) == 0 {
		recs = append(recs, RecommendRoutine)
	}
	return recs
}
