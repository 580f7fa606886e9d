package seeder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollector stands in for the collector's bridge endpoints: it issues
// a static token and dedups batches by event ID, like the real intake path.
type fakeCollector struct {
	seen    map[string]bool
	batches int
}

func newFakeCollector() (*fakeCollector, *httptest.Server) {
	fc := &fakeCollector{seen: make(map[string]bool)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/bridge/{script_id}/token", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("script_id") != "gl_test" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"gx": "1999999999", "gn": "nonce", "gs": "sig",
			"expires_at": time.Now().Add(15 * time.Minute).UTC().Format(time.RFC3339),
			"ttl_seconds": 900,
		})
	})
	mux.HandleFunc("POST /api/bridge/{script_id}/events", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Events []struct {
				EventID string `json:"event_id"`
			} `json:"events"`
			GX string `json:"gx"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.GX == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		accepted, duplicates := 0, 0
		for _, evt := range req.Events {
			if fc.seen[evt.EventID] {
				duplicates++
				continue
			}
			fc.seen[evt.EventID] = true
			accepted++
		}
		fc.batches++

		json.NewEncoder(w).Encode(map[string]any{
			"accepted": accepted, "duplicates": duplicates, "rejected": 0,
		})
	})

	return fc, httptest.NewServer(mux)
}

func TestRunSubmitsAllBatches(t *testing.T) {
	fc, srv := newFakeCollector()
	defer srv.Close()

	runner, err := NewRunner(Config{
		CollectorURL: srv.URL,
		ScriptID:     "gl_test",
		Count:        120,
		BatchSize:    50,
		Seed:         42,
	})
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, report.Generated)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 120, report.Accepted)
	assert.Equal(t, 0, report.Duplicates)
	assert.Equal(t, 120, len(fc.seen))
}

func TestRunReportsDuplicates(t *testing.T) {
	_, srv := newFakeCollector()
	defer srv.Close()

	runner, err := NewRunner(Config{
		CollectorURL: srv.URL,
		ScriptID:     "gl_test",
		Count:        100,
		BatchSize:    50,
		DuplicatePct: 20,
		Seed:         42,
	})
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, report.Generated)
	assert.Equal(t, 100, report.Accepted)
	assert.Equal(t, 20, report.Duplicates)
}

func TestRunUnknownScript(t *testing.T) {
	_, srv := newFakeCollector()
	defer srv.Close()

	runner, err := NewRunner(Config{
		CollectorURL: srv.URL,
		ScriptID:     "gl_missing",
		Count:        10,
	})
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.Error(t, err)
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(Config{ScriptID: "", Count: 10})
	assert.Error(t, err)

	_, err = NewRunner(Config{ScriptID: "gl_test", Count: 0})
	assert.Error(t, err)
}
