package domain

import (
	"time"
)

// RiskLevel is the discrete band a risk score falls into.
type RiskLevel string

const (
	LevelCritical RiskLevel = "critical"
	LevelHigh     RiskLevel = "high"
	LevelMedium   RiskLevel = "medium"
	LevelLow      RiskLevel = "low"
)

// Trend is the trajectory of an asset's fault rate.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendStable  Trend = "stable"
	TrendFalling Trend = "falling"
)

// FleetTrend is the trajectory of the fleet as a whole.
type FleetTrend string

const (
	FleetImproving FleetTrend = "improving"
	FleetStable    FleetTrend = "stable"
	FleetDegrading FleetTrend = "degrading"
)

// FactorKind tells whether a factor raises or lowers the score.
type FactorKind string

const (
	FactorRisk       FactorKind = "risk"
	FactorProtective FactorKind = "protective"
)

// RiskFactor is one triggered contributor to an asset's score.
type RiskFactor struct {
	Name        string     `json:"name"`
	Weight      int        `json:"weight"` // signed
	Description string     `json:"description"`
	Kind        FactorKind `json:"kind"`
}

// RecurringFault is a fault type seen at least twice in the recurrence window.
type RecurringFault struct {
	Type           string    `json:"type"`
	Count          int       `json:"count"`
	LastOccurrence time.Time `json:"lastOccurrence"`
}

// Prediction is the per-asset result of one analysis call.
// It is recomputed on every call and never persisted as such.
type Prediction struct {
	AssetID string `json:"assetId"`
	Code    string `json:"code"`
	Address string `json:"address"`
	City    string `json:"city"`
	Sector  int    `json:"sector"`

	Score          int       `json:"score"` // 0-100
	Level          RiskLevel `json:"level"`
	Probability7d  float64   `json:"probability7d"`  // 0-95
	Probability30d float64   `json:"probability30d"` // 0-98

	LastFaultDate *time.Time `json:"lastFaultDate,omitempty"`
	FaultCount7d  int        `json:"faultCount7d"`
	FaultCount30d int        `json:"faultCount30d"`
	FaultCount90d int        `json:"faultCount90d"`

	Factors         []RiskFactor     `json:"factors"`
	Trend           Trend            `json:"trend"`
	Recommendations []string         `json:"recommendations"`
	RecurringFaults []RecurringFault `json:"recurringFaults,omitempty"`

	// Degraded is set when the asset could not be scored and the
	// prediction is the low-confidence default.
	Degraded           bool `json:"degraded,omitempty"`
	QuarantinedRecords int  `json:"quarantinedRecords,omitempty"`
}

// HasRecurrence reports whether any fault type recurs on the asset.
func (p *Prediction) HasRecurrence() bool {
	return len(p.RecurringFaults) > 0
}

// AlertPriority orders fleet alerts.
type AlertPriority string

const (
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
	PriorityLow    AlertPriority = "low"
)

// Alert kinds
const (
	AlertCritical   = "critical"
	AlertRecurrence = "recurrence"
)

// Alert flags a group of assets in a fleet summary.
type Alert struct {
	Kind       string        `json:"kind"`
	Message    string        `json:"message"`
	AssetCodes []string      `json:"assetCodes"`
	Priority   AlertPriority `json:"priority"`
}

// FleetSummary aggregates the predictions of one analysis run.
type FleetSummary struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generatedAt"`
	Sectors     []int     `json:"sectors,omitempty"`

	AverageScore  float64    `json:"averageScore"`
	CriticalCount int        `json:"criticalCount"`
	HighCount     int        `json:"highCount"`
	OverallTrend  FleetTrend `json:"overallTrend"`

	AssetCount    int `json:"assetCount"`
	DegradedCount int `json:"degradedCount"`

	// Predictions are sorted by score, highest first.
	Predictions []*Prediction `json:"predictions"`
	Alerts      []Alert       `json:"alerts"`
}

// EmptyFleetSummary returns a well-formed summary with no predictions.
func EmptyFleetSummary(id string, sectors []int, at time.Time) *FleetSummary {
	return &FleetSummary{
		ID:           id,
		GeneratedAt:  at,
		Sectors:      sectors,
		OverallTrend: FleetStable,
		Predictions:  []*Prediction{},
		Alerts:       []Alert{},
	}
}
