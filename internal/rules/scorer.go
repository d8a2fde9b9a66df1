package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/liftwatch/liftwatch/internal/domain"
)

// Window lengths, in days.
const (
	WindowShort      = 7
	WindowMedium     = 30
	WindowTrend      = 60
	WindowRecurrence = 90
)

// Scoring errors.
var (
	ErrInvalidAsset  = errors.New("asset is missing id or code")
	ErrForeignRecord = errors.New("record belongs to another asset")
	ErrNilRecord     = errors.New("nil fault record")
)

// ComputationError reports an asset whose data could not be scored.
type ComputationError struct {
	AssetID string
	Err     error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("score asset %q: %v", e.AssetID, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// Scorer computes a Prediction for one asset from its normalized records.
// A Scorer is immutable after construction and safe for concurrent use.
type Scorer struct {
	env     *cel.Env
	factors []*compiledFactor
}

// NewScorer creates a scorer over the builtin factor table.
func NewScorer() (*Scorer, error) {
	return NewScorerWithFactors(BuiltinFactors())
}

// NewScorerWithFactors compiles the given factor table. Factors are applied
// in slice order.
func NewScorerWithFactors(factors []Factor) (*Scorer, error) {
	env, err := newFactorEnv()
	if err != nil {
		return nil, err
	}

	s := &Scorer{
		env:     env,
		factors: make([]*compiledFactor, 0, len(factors)),
	}
	for _, f := range factors {
		compiled, err := compileFactor(env, f)
		if err != nil {
			return nil, err
		}
		s.factors = append(s.factors, compiled)
	}

	return s, nil
}

// EvaluateFactors applies the factor table to a state. It returns the
// triggered factors and the unclamped score, base included.
func (s *Scorer) EvaluateFactors(state *State) ([]domain.RiskFactor, int, error) {
	activation := state.activation()

	score := BaseScore
	triggered := make([]domain.RiskFactor, 0, len(s.factors))
	for _, f := range s.factors {
		rf, err := f.evaluate(activation)
		if err != nil {
			return nil, 0, err
		}
		if rf == nil {
			continue
		}
		score += rf.Weight
		triggered = append(triggered, *rf)
	}

	return triggered, score, nil
}

// Score computes the prediction for asset as of now. Records must belong to
// the asset; records without a date are kept out of every window count.
func (s *Scorer) Score(asset *domain.Asset, records []*domain.FaultRecord, now time.Time) (*domain.Prediction, error) {
	if asset == nil {
		return nil, &ComputationError{Err: ErrInvalidAsset}
	}
	if asset.ID == "" || asset.Code == "" {
		return nil, &ComputationError{AssetID: asset.ID, Err: ErrInvalidAsset}
	}

	state := &State{
		OutOfService:  asset.OutOfService,
		UnderContract: asset.UnderContract,
		ContractPlan:  asset.ContractPlan,
	}

	var (
		lastFault *time.Time
		window    []*domain.FaultRecord
	)
	for _, r := range records {
		if r == nil {
			return nil, &ComputationError{AssetID: asset.ID, Err: ErrNilRecord}
		}
		if r.AssetID != "" && r.AssetID != asset.ID {
			return nil, &ComputationError{
				AssetID: asset.ID,
				Err:     fmt.Errorf("%w: record %s has asset %s", ErrForeignRecord, r.ID, r.AssetID),
			}
		}
		if !r.HasDate {
			continue
		}

		switch r.Kind {
		case domain.KindVisit:
			if withinDays(r.Date, now, WindowRecurrence) {
				state.VisitCount90d++
			}
		case domain.KindRealFault:
			if lastFault == nil || r.Date.After(*lastFault) {
				d := r.Date
				lastFault = &d
			}
			countFault(state, r.Date, now)
			if withinDays(r.Date, now, WindowRecurrence) {
				window = append(window, r)
			}
		}
	}

	state.Recurring = DetectRecurrence(window)

	factors, raw, err := s.EvaluateFactors(state)
	if err != nil {
		return nil, &ComputationError{AssetID: asset.ID, Err: err}
	}

	score := ClampScore(raw)
	p7, p30 := Probabilities(score, state.FaultCount7d, state.FaultCount30d)

	return &domain.Prediction{
		AssetID:         asset.ID,
		Code:            asset.Code,
		Address:         asset.Address,
		City:            asset.City,
		Sector:          asset.Sector,
		Score:           score,
		Level:           LevelFor(score),
		Probability7d:   p7,
		Probability30d:  p30,
		LastFaultDate:   lastFault,
		FaultCount7d:    state.FaultCount7d,
		FaultCount30d:   state.FaultCount30d,
		FaultCount90d:   state.FaultCount90d,
		Factors:         factors,
		Trend:           TrendFor(state.FaultCount30d, state.FaultCount30to60d),
		Recommendations: Recommend(score, state),
		RecurringFaults: state.Recurring,
	}, nil
}

func countFault(state *State, date, now time.Time) {
	if withinDays(date, now, WindowShort) {
		state.FaultCount7d++
	}
	if withinDays(date, now, WindowMedium) {
		state.FaultCount30d++
	} else if withinDays(date, now, WindowTrend) {
		state.FaultCount30to60d++
	}
	if withinDays(date, now, WindowRecurrence) {
		state.FaultCount90d++
	}
}

// DegradedPrediction is the low-confidence default substituted for an asset
// that could not be scored.
func DegradedPrediction(asset *domain.Asset) *domain.Prediction {
	p := &domain.Prediction{
		Score:           0,
		Level:           domain.LevelLow,
		Factors:         []domain.RiskFactor{},
		Trend:           domain.TrendStable,
		Recommendations: []string{RecommendNoData},
		Degraded:        true,
	}
	if asset != nil {
		p.AssetID = asset.ID
		p.Code = asset.Code
		p.Address = asset.Address
		p.City = asset.City
		p.Sector = asset.Sector
	}
	return p
}
