package rules

import (
	"math"

	"github.com/liftwatch/liftwatch/internal/domain"
)

// Level thresholds, inclusive on the low side.
const (
	CriticalThreshold = 70
	HighThreshold     = 50
	MediumThreshold   = 30
)

// Probability ceilings, in percent.
const (
	MaxProbability7d  = 95
	MaxProbability30d = 98
)

// ClampScore bounds a raw factor sum to [0,100].
func ClampScore(score int) int {
	return max(0, min(100, score))
}

// LevelFor maps a clamped score to its risk level.
func LevelFor(score int) domain.RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return domain.LevelCritical
	case score >= HighThreshold:
		return domain.LevelHigh
	case score >= MediumThreshold:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// Probabilities returns the 7-day and 30-day failure probabilities in percent,
// rounded to the nearest integer.
func Probabilities(score, faultCount7d, faultCount30d int) (p7, p30 float64) {
	p7 = math.Min(MaxProbability7d, float64(score)*0.8+float64(faultCount7d)*15)
	p30 = math.Min(MaxProbability30d, float64(score)*1.2+float64(faultCount30d)*10)
	return math.Round(p7), math.Round(p30)
}

// TrendFor compares the last 30 days against the 30 days before them.
// A difference of one fault either way is treated as noise.
func TrendFor(current, previous int) domain.Trend {
	switch {
	case current > previous+1:
		return domain.TrendRising
	case current < previous-1:
		return domain.TrendFalling
	default:
		return domain.TrendStable
	}
}
