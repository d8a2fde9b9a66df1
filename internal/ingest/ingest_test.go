package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `asset_code,id,date,cause,type
ASC-100,f-1,20250530,12,Door
ASC-100,f-2,20250528,99,
,f-3,20250527,12,Door
ASC-404,f-4,20250526,7,Motor
`

func TestReadCSV(t *testing.T) {
	t.Run("MapsColumns", func(t *testing.T) {
		rows, skipped, err := ReadCSV(strings.NewReader(sampleCSV), 0)
		require.NoError(t, err)

		assert.Equal(t, 1, skipped)
		require.Len(t, rows, 3)

		assert.Equal(t, "ASC-100", rows[0].AssetCode)
		assert.Equal(t, "f-1", rows[0].ID)
		assert.Equal(t, map[string]any{"date": "20250530", "cause": "12", "type": "Door"}, rows[0].Data)

		// empty cells are dropped
		assert.NotContains(t, rows[1].Data, "type")
		assert.Equal(t, 5, rows[2].Line)
	})

	t.Run("Limit", func(t *testing.T) {
		rows, _, err := ReadCSV(strings.NewReader(sampleCSV), 1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("CodeColumnRequired", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader("date,cause\n20250530,12\n"), 0)
		assert.ErrorIs(t, err, ErrNoCodeColumn)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		_, _, err := ReadCSV(strings.NewReader(""), 0)
		assert.Error(t, err)
	})
}

func TestImporter(t *testing.T) {
	var mu sync.Mutex
	received := map[string][]faultRequest{}

	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Post("/assets/{code}/faults", func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if code != "ASC-100" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req faultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received[code] = append(received[code], req)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(router)
	defer srv.Close()

	rows, _, err := ReadCSV(strings.NewReader(sampleCSV), 0)
	require.NoError(t, err)

	im := NewImporter(srv.URL, 2)
	require.NoError(t, im.CheckHealth(context.Background()))

	var failed []string
	var failMu sync.Mutex
	stats := im.Run(context.Background(), rows, func(row Row, err error) {
		failMu.Lock()
		failed = append(failed, row.AssetCode)
		failMu.Unlock()
	})

	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(2), stats.Created)
	assert.Equal(t, int64(1), stats.UnknownAsset)
	assert.Equal(t, int64(0), stats.Errors)
	assert.Equal(t, []string{"ASC-404"}, failed)
	assert.Len(t, received["ASC-100"], 2)
}

func TestCheckHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewImporter(srv.URL, 1).CheckHealth(context.Background())
	assert.Error(t, err)
}
