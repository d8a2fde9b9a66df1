package rules

import (
	"testing"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  domain.RiskLevel
	}{
		{0, domain.LevelLow},
		{29, domain.LevelLow},
		{30, domain.LevelMedium},
		{49, domain.LevelMedium},
		{50, domain.LevelHigh},
		{69, domain.LevelHigh},
		{70, domain.LevelCritical},
		{100, domain.LevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.score), "score %d", tt.score)
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-25))
	assert.Equal(t, 55, ClampScore(55))
	assert.Equal(t, 100, ClampScore(220))
}

func TestProbabilities(t *testing.T) {
	p7, p30 := Probabilities(40, 1, 2)
	assert.Equal(t, 47.0, p7)  // 32 + 15
	assert.Equal(t, 68.0, p30) // 48 + 20

	p7, p30 = Probabilities(100, 1000, 1000)
	assert.Equal(t, 95.0, p7)
	assert.Equal(t, 98.0, p30)

	p7, p30 = Probabilities(0, 0, 0)
	assert.Zero(t, p7)
	assert.Zero(t, p30)

	// 33*0.8 = 26.4, 33*1.2 = 39.6
	p7, p30 = Probabilities(33, 0, 0)
	assert.Equal(t, 26.0, p7)
	assert.Equal(t, 40.0, p30)
}

func TestTrendFor(t *testing.T) {
	assert.Equal(t, domain.TrendRising, TrendFor(4, 2))
	assert.Equal(t, domain.TrendFalling, TrendFor(2, 4))
	assert.Equal(t, domain.TrendStable, TrendFor(3, 2))
	assert.Equal(t, domain.TrendStable, TrendFor(2, 3))
	assert.Equal(t, domain.TrendStable, TrendFor(0, 0))

	flip := map[domain.Trend]domain.Trend{
		domain.TrendRising:  domain.TrendFalling,
		domain.TrendFalling: domain.TrendRising,
		domain.TrendStable:  domain.TrendStable,
	}
	for a := 0; a <= 10; a++ {
		for b := 0; b <= 10; b++ {
			assert.Equal(t, flip[TrendFor(a, b)], TrendFor(b, a), "a=%d b=%d", a, b)
		}
	}
}

func TestScoreTrendWindows(t *testing.T) {
	s := newTestScorer(t)
	asset := testAsset()
	asset.UnderContract = true

	rising := []*domain.FaultRecord{fault("A", 1), fault("B", 5), fault("C", 20), fault("D", 45)}
	p, err := s.Score(asset, rising, testNow)
	assert.NoError(t, err)
	assert.Equal(t, domain.TrendRising, p.Trend)

	falling := []*domain.FaultRecord{fault("A", 10), fault("B", 35), fault("C", 40), fault("D", 50), fault("E", 59)}
	p, err = s.Score(asset, falling, testNow)
	assert.NoError(t, err)
	assert.Equal(t, domain.TrendFalling, p.Trend)
}

func TestWithinDays(t *testing.T) {
	now := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.True(t, withinDays(now.AddDate(0, 0, -30), now, 30))
	assert.False(t, withinDays(now.AddDate(0, 0, -31), now, 30))
	assert.True(t, withinDays(now.AddDate(0, 0, 2), now, 30))
}
