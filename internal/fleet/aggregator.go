// Package fleet runs the risk scorer over a whole fleet and folds the
// per-asset predictions into a summary.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/metrics"
	"github.com/liftwatch/liftwatch/internal/records"
	"github.com/liftwatch/liftwatch/internal/rules"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("liftwatch-fleet")

// Config holds aggregator settings.
type Config struct {
	// LookbackDays is the fault window fetched per run, at least domain.MinLookbackDays.
	LookbackDays int

	// MaxWorkers bounds concurrent per-asset scoring.
	MaxWorkers int

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Now returns the analysis reference time. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Aggregator scores every asset of a fleet.
type Aggregator struct {
	source     domain.AssetSource
	scorer     *rules.Scorer
	metrics    *metrics.Metrics
	now        func() time.Time
	lookback   int
	maxWorkers int
}

// NewAggregator creates a fleet aggregator.
func NewAggregator(source domain.AssetSource, scorer *rules.Scorer, cfg Config) *Aggregator {
	if cfg.LookbackDays < domain.MinLookbackDays {
		cfg.LookbackDays = domain.MinLookbackDays
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &Aggregator{
		source:     source,
		scorer:     scorer,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		lookback:   cfg.LookbackDays,
		maxWorkers: cfg.MaxWorkers,
	}
}

// AnalyzeFleet scores every asset in the given sectors (all sectors when
// empty). It never fails: a fetch error yields an empty summary and a
// per-asset error yields a degraded prediction for that asset only.
func (a *Aggregator) AnalyzeFleet(ctx context.Context, sectors []int) *domain.FleetSummary {
	start := time.Now()
	now := a.now()
	id := uuid.New().String()

	ctx, span := tracer.Start(ctx, "fleet.analyze",
		trace.WithAttributes(
			attribute.String("summary.id", id),
			attribute.IntSlice("fleet.sectors", sectors),
		),
	)
	defer span.End()

	assets, err := a.source.ListAssets(ctx, sectors)
	if err != nil {
		return a.fetchFailed(span, id, sectors, now, "assets", err)
	}
	if len(assets) == 0 {
		summary := Summarize(id, sectors, now, nil)
		a.metrics.ObserveAnalysis(summary, time.Since(start))
		return summary
	}

	var assetIDs []string
	if len(sectors) > 0 {
		assetIDs = make([]string, 0, len(assets))
		for _, asset := range assets {
			if asset != nil {
				assetIDs = append(assetIDs, asset.ID)
			}
		}
	}

	since := now.AddDate(0, 0, -a.lookback)
	raws, err := a.source.ListRecentFaultRecords(ctx, since, assetIDs)
	if err != nil {
		return a.fetchFailed(span, id, sectors, now, "fault records", err)
	}

	byAsset := make(map[string][]*domain.RawFaultRecord, len(assets))
	for _, r := range raws {
		if r == nil {
			continue
		}
		byAsset[r.AssetID] = append(byAsset[r.AssetID], r)
	}

	predictions := make([]*domain.Prediction, len(assets))
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.maxWorkers)

	for i, asset := range assets {
		var own []*domain.RawFaultRecord
		if asset != nil {
			own = byAsset[asset.ID]
		}

		wg.Add(1)
		go func(idx int, asset *domain.Asset, own []*domain.RawFaultRecord) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			predictions[idx] = a.predict(ctx, asset, own, now)
		}(i, asset, own)
	}

	wg.Wait()

	summary := Summarize(id, sectors, now, predictions)
	a.metrics.ObserveAnalysis(summary, time.Since(start))

	span.SetAttributes(
		attribute.Int("fleet.assets", summary.AssetCount),
		attribute.Int("fleet.degraded", summary.DegradedCount),
		attribute.Int("fleet.critical", summary.CriticalCount),
	)

	slog.Info("fleet analyzed",
		"summary_id", id,
		"sectors", sectors,
		"asset_count", summary.AssetCount,
		"record_count", len(raws),
		"degraded_count", summary.DegradedCount,
		"critical_count", summary.CriticalCount,
		"average_score", summary.AverageScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return summary
}

func (a *Aggregator) fetchFailed(span trace.Span, id string, sectors []int, now time.Time, what string, err error) *domain.FleetSummary {
	span.RecordError(err)
	span.SetStatus(codes.Error, "fetch failed")
	a.metrics.AnalysisFailed()

	slog.Error("fleet analysis fetch failed",
		"summary_id", id,
		"fetching", what,
		"error", err,
	)
	return domain.EmptyFleetSummary(id, sectors, now)
}

// GetAssetPrediction scores a single asset from its full record history.
// It returns nil, nil when no asset has the given code. A scoring failure
// yields the degraded prediction, not an error.
func (a *Aggregator) GetAssetPrediction(ctx context.Context, code string) (*domain.Prediction, error) {
	ctx, span := tracer.Start(ctx, "fleet.asset_prediction",
		trace.WithAttributes(attribute.String("asset.code", code)),
	)
	defer span.End()

	asset, err := a.source.GetAssetByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get asset %s: %w", code, err)
	}
	if asset == nil {
		return nil, nil
	}

	raws, err := a.source.ListFaultRecordsByAsset(ctx, asset.ID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list fault records of %s: %w", code, err)
	}

	return a.predict(ctx, asset, raws, a.now()), nil
}

// predict is one isolated unit of work: any error or panic is converted to
// the degraded prediction.
func (a *Aggregator) predict(ctx context.Context, asset *domain.Asset, raws []*domain.RawFaultRecord, now time.Time) (p *domain.Prediction) {
	code := ""
	if asset != nil {
		code = asset.Code
	}
	_, span := tracer.Start(ctx, "fleet.predict",
		trace.WithAttributes(attribute.String("asset.code", code)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			slog.Error("asset scoring panicked",
				"asset_code", code,
				"error", err,
			)
			p = rules.DegradedPrediction(asset)
		}
		a.metrics.AssetScored(p.Degraded)
	}()

	strict, quarantined := records.NormalizeAll(raws)
	if quarantined > 0 {
		a.metrics.RecordsQuarantined(quarantined)
		slog.Debug("fault records quarantined",
			"asset_code", code,
			"count", quarantined,
		)
	}

	pred, err := a.scorer.Score(asset, strict, now)
	if err != nil {
		span.RecordError(err)
		slog.Warn("asset could not be scored",
			"asset_code", code,
			"error", err,
		)
		return rules.DegradedPrediction(asset)
	}

	pred.QuarantinedRecords = quarantined
	return pred
}

// Summarize folds predictions into a fleet summary. Nil predictions are
// ignored. The predictions slice is sorted in place.
func Summarize(id string, sectors []int, at time.Time, predictions []*domain.Prediction) *domain.FleetSummary {
	summary := domain.EmptyFleetSummary(id, sectors, at)

	kept := make([]*domain.Prediction, 0, len(predictions))
	for _, p := range predictions {
		if p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return summary
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Code < kept[j].Code
	})

	var (
		total            int
		rising, falling  int
		critical, recurr []string
	)
	for _, p := range kept {
		total += p.Score

		switch p.Level {
		case domain.LevelCritical:
			summary.CriticalCount++
			critical = append(critical, p.Code)
		case domain.LevelHigh:
			summary.HighCount++
		}

		switch p.Trend {
		case domain.TrendRising:
			rising++
		case domain.TrendFalling:
			falling++
		}

		if p.HasRecurrence() {
			recurr = append(recurr, p.Code)
		}
		if p.Degraded {
			summary.DegradedCount++
		}
	}

	summary.Predictions = kept
	summary.AssetCount = len(kept)
	summary.AverageScore = float64(total) / float64(len(kept))
	summary.OverallTrend = OverallTrend(rising, falling)

	if len(critical) > 0 {
		summary.Alerts = append(summary.Alerts, domain.Alert{
			Kind:       domain.AlertCritical,
			Message:    fmt.Sprintf("%d asset(s) at critical risk", len(critical)),
			AssetCodes: critical,
			Priority:   domain.PriorityHigh,
		})
	}
	if len(recurr) > 0 {
		summary.Alerts = append(summary.Alerts, domain.Alert{
			Kind:       domain.AlertRecurrence,
			Message:    fmt.Sprintf("%d asset(s) with recurring faults", len(recurr)),
			AssetCodes: recurr,
			Priority:   domain.PriorityMedium,
		})
	}

	return summary
}

// OverallTrend classifies the fleet from its rising and falling asset counts.
func OverallTrend(rising, falling int) domain.FleetTrend {
	switch {
	case float64(rising) > float64(falling)*1.5:
		return domain.FleetDegrading
	case float64(falling) > float64(rising)*1.5:
		return domain.FleetImproving
	default:
		return domain.FleetStable
	}
}
