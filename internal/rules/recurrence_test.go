package rules

import (
	"testing"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectRecurrence(t *testing.T) {
	t.Run("SingleOccurrenceIsNotRecurring", func(t *testing.T) {
		got := DetectRecurrence([]*domain.FaultRecord{fault("Door", 1), fault("Motor", 2)})
		assert.Empty(t, got)
	})

	t.Run("OrderedByCountThenRecency", func(t *testing.T) {
		got := DetectRecurrence([]*domain.FaultRecord{
			fault("Motor", 40), fault("Motor", 60),
			fault("Door", 3), fault("Door", 10), fault("Door", 20),
			fault("Brake", 5), fault("Brake", 70),
		})
		require.Len(t, got, 3)
		assert.Equal(t, "Door", got[0].Type)
		assert.Equal(t, 3, got[0].Count)
		assert.Equal(t, testNow.AddDate(0, 0, -3), got[0].LastOccurrence)
		assert.Equal(t, "Brake", got[1].Type)
		assert.Equal(t, "Motor", got[2].Type)
	})

	t.Run("TieBrokenByLabel", func(t *testing.T) {
		got := DetectRecurrence([]*domain.FaultRecord{
			fault("Door", 1), fault("Door", 2),
			fault("Cabin", 1), fault("Cabin", 2),
		})
		require.Len(t, got, 2)
		assert.Equal(t, "Cabin", got[0].Type)
		assert.Equal(t, "Door", got[1].Type)
	})

	t.Run("IgnoresNonFaults", func(t *testing.T) {
		v1, v2 := visit(1), visit(2)
		v1.Label, v2.Label = "Door", "Door"
		got := DetectRecurrence([]*domain.FaultRecord{v1, v2, fault("Door", 3), nil})
		assert.Empty(t, got)
	})

	t.Run("ScorerRestrictsToNinetyDays", func(t *testing.T) {
		s := newTestScorer(t)
		p, err := s.Score(testAsset(), []*domain.FaultRecord{fault("Door", 10), fault("Door", 120)}, testNow)
		require.NoError(t, err)
		assert.Empty(t, p.RecurringFaults)
	})
}

func TestRecommend(t *testing.T) {
	t.Run("OrderedRules", func(t *testing.T) {
		state := &State{
			FaultCount30d: 3,
			OutOfService:  true,
			Recurring:     []domain.RecurringFault{{Type: "Door", Count: 3}},
		}
		got := Recommend(85, state)
		assert.Equal(t, []string{
			RecommendUrgent,
			`Investigate the root cause of recurring "Door" faults`,
			RecommendReturn,
			RecommendContract,
			RecommendPatterns,
		}, got)
	})

	t.Run("DefaultWhenNothingTriggers", func(t *testing.T) {
		got := Recommend(10, &State{UnderContract: true})
		assert.Equal(t, []string{RecommendRoutine}, got)
	})

	t.Run("UrgentAtThreshold", func(t *testing.T) {
		assert.Contains(t, Recommend(70, &State{UnderContract: true}), RecommendUrgent)
		assert.NotContains(t, Recommend(69, &State{UnderContract: true}), RecommendUrgent)
	})
}
