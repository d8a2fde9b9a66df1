// Package worker runs fleet analysis jobs received from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/fleet"
)

// Analyzer runs a fleet analysis. *fleet.Aggregator implements it.
type Analyzer interface {
	AnalyzeFleet(ctx context.Context, sectors []int) *domain.FleetSummary
}

// Worker processes analysis requests asynchronously from the EventBus.
type Worker struct {
	bus       domain.EventBus
	analyzer  Analyzer
	snapshots *fleet.SnapshotStore

	mu            sync.Mutex
	subscriptions []domain.Subscription
	processed     int
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker. snapshots may be nil, in which case
// completed summaries are only announced on the bus.
func NewWorker(bus domain.EventBus, analyzer Analyzer, snapshots *fleet.SnapshotStore) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		analyzer:  analyzer,
		snapshots: snapshots,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to analysis requests.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicAnalysisRequested, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicAnalysisRequested, err)
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("analysis worker started",
		"topic", domain.TopicAnalysisRequested,
	)
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	w.wg.Add(1)
	defer w.wg.Done()

	return w.processAnalysis(ctx, msg)
}

// processAnalysis runs one requested analysis and publishes its outcome.
func (w *Worker) processAnalysis(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req domain.AnalysisRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse analysis request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = msg.ID
	}

	slog.Debug("processing analysis request",
		"job_id", jobID,
		"source", req.Source,
		"sectors", req.Sectors,
	)

	summary := w.analyzer.AnalyzeFleet(ctx, req.Sectors)

	if w.snapshots != nil {
		if err := w.snapshots.Save(ctx, summary); err != nil {
			slog.Error("failed to save fleet snapshot",
				"job_id", jobID,
				"error", err,
			)
		}
	}

	w.mu.Lock()
	w.processed++
	w.mu.Unlock()

	completed := domain.AnalysisCompleted{
		JobID:         jobID,
		SummaryID:     summary.ID,
		AssetCount:    summary.AssetCount,
		AverageScore:  summary.AverageScore,
		CriticalCount: summary.CriticalCount,
		HighCount:     summary.HighCount,
		OverallTrend:  summary.OverallTrend,
		Alerts:        summary.Alerts,
	}
	payload, _ := json.Marshal(completed)
	if err := w.bus.Publish(ctx, domain.TopicAnalysisCompleted, payload); err != nil {
		slog.Error("failed to publish analysis result",
			"job_id", jobID,
			"error", err,
		)
	}

	slog.Info("analysis job processed",
		"job_id", jobID,
		"source", req.Source,
		"summary_id", summary.ID,
		"asset_count", summary.AssetCount,
		"critical_count", summary.CriticalCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// RequestAnalysis publishes an analysis request and returns its job ID.
func RequestAnalysis(ctx context.Context, bus domain.EventBus, sectors []int, source string) (string, error) {
	req := domain.AnalysisRequest{
		JobID:   uuid.New().String(),
		Sectors: sectors,
		Source:  source,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis request: %w", err)
	}
	if err := bus.Publish(ctx, domain.TopicAnalysisRequested, payload); err != nil {
		return "", fmt.Errorf("failed to publish analysis request: %w", err)
	}
	return req.JobID, nil
}

// Stop gracefully stops the worker, waiting for in-flight jobs.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}

	w.wg.Wait()

	slog.Info("analysis worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	JobsProcessed     int      `json:"jobsProcessed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		JobsProcessed:     w.processed,
	}
}
