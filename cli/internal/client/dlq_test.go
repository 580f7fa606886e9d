package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newFakeDLQServer(t *testing.T, enabled bool, drops []DroppedEvent) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dlq", func(w http.ResponseWriter, r *http.Request) {
		if !enabled {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"events": drops,
			"count":  len(drops),
		})
	})
	mux.HandleFunc("GET /api/dlq/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"enabled": enabled,
			"backend": "jetstream",
		})
	})
	mux.HandleFunc("DELETE /api/dlq", func(w http.ResponseWriter, r *http.Request) {
		if !enabled {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"purged": true})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDLQClientList(t *testing.T) {
	drops := []DroppedEvent{
		{Timestamp: time.Now().UTC(), SiteID: 7, EventID: "evt-1", Reason: "invalid_payload", RetryCount: 0},
		{Timestamp: time.Now().UTC(), SiteID: 7, EventID: "evt-2", Reason: "retry_exhausted", RetryCount: 2},
	}
	srv := newFakeDLQServer(t, true, drops)

	got, err := NewDLQClient(srv.URL).List(context.Background(), 50)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(got))
	}
	if got[0].EventID != "evt-1" || got[1].Reason != "retry_exhausted" {
		t.Errorf("List() entries = %+v", got)
	}
}

func TestDLQClientListDisabled(t *testing.T) {
	srv := newFakeDLQServer(t, false, nil)

	_, err := NewDLQClient(srv.URL).List(context.Background(), 0)
	if !errors.Is(err, ErrDLQDisabled) {
		t.Errorf("List() error = %v, want ErrDLQDisabled", err)
	}
}

func TestDLQClientPurge(t *testing.T) {
	srv := newFakeDLQServer(t, true, nil)

	if err := NewDLQClient(srv.URL).Purge(context.Background()); err != nil {
		t.Errorf("Purge() error = %v", err)
	}
}

func TestDLQClientPurgeDisabled(t *testing.T) {
	srv := newFakeDLQServer(t, false, nil)

	err := NewDLQClient(srv.URL).Purge(context.Background())
	if !errors.Is(err, ErrDLQDisabled) {
		t.Errorf("Purge() error = %v, want ErrDLQDisabled", err)
	}
}

func TestDLQClientStats(t *testing.T) {
	srv := newFakeDLQServer(t, true, nil)

	stats, err := NewDLQClient(srv.URL).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats["backend"] != "jetstream" {
		t.Errorf("Stats() backend = %v, want jetstream", stats["backend"])
	}
}
