// Package metrics exposes Prometheus collectors for fleet analysis and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "liftwatch"

// Analysis outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeFetchError = "fetch_error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	analysisRuns     *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	assetsScored     *prometheus.CounterVec
	quarantined      prometheus.Counter
	fleetAverage     prometheus.Gauge
	fleetLevels      *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		analysisRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Fleet analysis runs by outcome.",
		}, []string{"outcome"}),
		analysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of successful fleet analysis runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		assetsScored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_scored_total",
			Help:      "Assets scored, split by whether the degraded default was used.",
		}, []string{"result"}),
		quarantined: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_quarantined_total",
			Help:      "Raw fault records skipped during normalization.",
		}),
		fleetAverage: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fleet_average_score",
			Help:      "Average risk score of the last analyzed fleet.",
		}),
		fleetLevels: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fleet_assets",
			Help:      "Assets per risk level in the last analyzed fleet.",
		}, []string{"level"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveAnalysis records a completed fleet run.
func (m *Metrics) ObserveAnalysis(summary *domain.FleetSummary, d time.Duration) {
	if m == nil || summary == nil {
		return
	}
	m.analysisRuns.WithLabelValues(OutcomeOK).Inc()
	m.analysisDuration.Observe(d.Seconds())
	m.fleetAverage.Set(summary.AverageScore)

	levels := map[domain.RiskLevel]int{
		domain.LevelCritical: 0,
		domain.LevelHigh:     0,
		domain.LevelMedium:   0,
		domain.LevelLow:      0,
	}
	for _, p := range summary.Predictions {
		levels[p.Level]++
	}
	for level, n := range levels {
		m.fleetLevels.WithLabelValues(string(level)).Set(float64(n))
	}
}

// AnalysisFailed records a run that could not fetch its data.
func (m *Metrics) AnalysisFailed() {
	if m == nil {
		return
	}
	m.analysisRuns.WithLabelValues(OutcomeFetchError).Inc()
}

// AssetScored records one per-asset computation.
func (m *Metrics) AssetScored(degraded bool) {
	if m == nil {
		return
	}
	result := "ok"
	if degraded {
		result = "degraded"
	}
	m.assetsScored.WithLabelValues(result).Inc()
}

// RecordsQuarantined adds n skipped records.
func (m *Metrics) RecordsQuarantined(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.quarantined.Add(float64(n))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
