package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Stats tracks an import run.
type Stats struct {
	Sent         int64
	Created      int64
	UnknownAsset int64
	Errors       int64

	ProcessingTimeMs int64
}

// AvgLatencyMs returns the mean request latency.
func (s *Stats) AvgLatencyMs() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.ProcessingTimeMs) / float64(s.Sent)
}

// Importer posts fault log rows to the server with a fixed number of workers.
type Importer struct {
	client  *http.Client
	baseURL string
	workers int
}

// NewImporter creates an importer for the server at baseURL.
func NewImporter(baseURL string, workers int) *Importer {
	if workers <= 0 {
		workers = 10
	}
	return &Importer{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		workers: workers,
	}
}

// CheckHealth fails unless the server answers /health with 200.
func (im *Importer) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, im.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Run sends every row and returns the tally. onError, if set, is called
// for each failed row from the worker goroutines.
func (im *Importer) Run(ctx context.Context, rows []Row, onError func(Row, error)) *Stats {
	stats := &Stats{}

	work := make(chan Row, 100)
	var wg sync.WaitGroup

	for i := 0; i < im.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for row := range work {
				start := time.Now()
				status, err := im.post(ctx, row)
				atomic.AddInt64(&stats.ProcessingTimeMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&stats.Sent, 1)

				switch {
				case err == nil:
					atomic.AddInt64(&stats.Created, 1)
					continue
				case status == http.StatusNotFound:
					atomic.AddInt64(&stats.UnknownAsset, 1)
				default:
					atomic.AddInt64(&stats.Errors, 1)
				}
				if onError != nil {
					onError(row, err)
				}
			}
		}()
	}

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		work <- row
	}
	close(work)

	wg.Wait()
	return stats
}

type faultRequest struct {
	ID   string         `json:"id,omitempty"`
	Data map[string]any `json:"data"`
}

func (im *Importer) post(ctx context.Context, row Row) (int, error) {
	body, err := json.Marshal(faultRequest{ID: row.ID, Data: row.Data})
	if err != nil {
		return 0, err
	}

	endpoint := im.baseURL + "/assets/" + url.PathEscape(row.AssetCode) + "/faults"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := im.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return resp.StatusCode, fmt.Errorf("line %d: status %d", row.Line, resp.StatusCode)
	}
	return resp.StatusCode, nil
}
