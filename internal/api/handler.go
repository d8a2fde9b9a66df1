package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/fleet"
	"github.com/liftwatch/liftwatch/internal/records"
	"github.com/liftwatch/liftwatch/internal/worker"
)

// SourceAPI tags analysis jobs requested over HTTP.
const SourceAPI = "api"

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	aggregator *fleet.Aggregator
	snapshots  *fleet.SnapshotStore
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, version string) *Handler {
	return &Handler{
		repo:       deps.Repo,
		cache:      deps.Cache,
		bus:        deps.Bus,
		aggregator: deps.Aggregator,
		snapshots:  deps.Snapshots,
		version:    version,
	}
}

// AnalyzeFleet handles GET /fleet/analysis. The summary is recomputed on
// every call; the optional sectors query parameter is a comma separated list.
func (h *Handler) AnalyzeFleet(w http.ResponseWriter, r *http.Request) {
	sectors, err := parseSectors(r.URL.Query().Get("sectors"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := h.aggregator.AnalyzeFleet(r.Context(), sectors)
	writeJSON(w, http.StatusOK, summary)
}

// LatestAnalysis handles GET /fleet/analysis/latest.
func (h *Handler) LatestAnalysis(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshots not available")
		return
	}

	summary, err := h.snapshots.Latest(r.Context())
	if err != nil {
		slog.Error("failed to read latest fleet summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read latest summary")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no background analysis has completed yet")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// AnalysisJobRequest is the request body for POST /fleet/analysis/jobs.
type AnalysisJobRequest struct {
	Sectors []int `json:"sectors,omitempty"`
}

// RequestAnalysisJob handles POST /fleet/analysis/jobs.
func (h *Handler) RequestAnalysisJob(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	var req AnalysisJobRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON request body")
			return
		}
	}

	jobID, err := worker.RequestAnalysis(r.Context(), h.bus, req.Sectors, SourceAPI)
	if err != nil {
		slog.Error("failed to request analysis", "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to queue analysis")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":  jobID,
		"status": "queued",
	})
}

// GetAssetPrediction handles GET /assets/{code}/prediction.
func (h *Handler) GetAssetPrediction(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	prediction, err := h.aggregator.GetAssetPrediction(r.Context(), code)
	if err != nil {
		slog.Error("failed to compute asset prediction", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute prediction")
		return
	}
	if prediction == nil {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}

	writeJSON(w, http.StatusOK, prediction)
}

// CreateAsset handles POST /assets.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	var req domain.AssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	asset := req.ToAsset()
	if err := h.repo.SaveAsset(r.Context(), asset); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to save asset", "code", req.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save asset")
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}

// FaultRecordRequest is the request body for POST /assets/{code}/faults.
// Data is stored verbatim; it is validated when the asset is scored.
type FaultRecordRequest struct {
	ID   string         `json:"id,omitempty"`
	Data map[string]any `json:"data"`
}

// CreateFaultRecord handles POST /assets/{code}/faults.
func (h *Handler) CreateFaultRecord(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	ctx := r.Context()
	code := chi.URLParam(r, "code")

	var req FaultRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if req.Data == nil {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}

	asset, err := h.repo.GetAssetByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	if err != nil {
		slog.Error("failed to get asset", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get asset")
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	rec := &domain.RawFaultRecord{
		ID:         req.ID,
		AssetID:    asset.ID,
		Data:       req.Data,
		RecordedAt: recordedAt(req.Data),
	}
	if err := h.repo.SaveFaultRecord(ctx, rec); err != nil {
		slog.Error("failed to save fault record", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save fault record")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// recordedAt files a record under its own date when it has a valid one,
// otherwise under the ingestion time.
func recordedAt(data map[string]any) time.Time {
	if s, ok := data[domain.FieldDate].(string); ok {
		if d, ok := records.ParseDate(strings.TrimSpace(s)); ok {
			return d
		}
	}
	return time.Now().UTC()
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	checks := map[string]string{}

	if h.repo != nil {
		checks["repository"] = pingStatus(h.repo.Ping(r.Context()))
	}
	if h.cache != nil {
		checks["cache"] = pingStatus(h.cache.Ping(r.Context()))
	}
	if h.bus != nil {
		checks["eventBus"] = pingStatus(h.bus.Ping(r.Context()))
	}
	for _, c := range checks {
		if c != "ok" {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

func pingStatus(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.aggregator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func parseSectors(v string) ([]int, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}

	parts := strings.Split(v, ",")
	sectors := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.New("sectors must be a comma separated list of integers")
		}
		sectors = append(sectors, n)
	}
	return sectors, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
