// Package dlq mirrors terminally dropped raw events to a NATS JetStream
// stream for operator inspection. The database rows remain authoritative;
// losing a DLQ entry loses visibility, never data.
package dlq

import (
	"context"
	"errors"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
)

// ErrNotEnabled is returned by inspection operations when the deployment runs
// without a dead-letter backend.
var ErrNotEnabled = errors.New("dead-letter queue not enabled")

// DroppedEvent is the DLQ wire record for one terminally dropped raw event.
type DroppedEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	SiteID     int64     `json:"site_id"`
	RawEventID int64     `json:"raw_event_id"`
	EventID    string    `json:"event_id"`
	ScriptID   string    `json:"script_id"`
	EventType  string    `json:"event_type"`
	Reason     string    `json:"reason"`
	LastError  string    `json:"last_error,omitempty"`
	RetryCount int       `json:"retry_count"`
	Payload    string    `json:"payload,omitempty"`
}

// Writer publishes drop records and run summaries. Implementations must be
// safe for concurrent use.
type Writer interface {
	WriteDrop(ctx context.Context, raw *models.RawEvent, reason, lastError string) error
	WriteRunSummary(ctx context.Context, summary *models.RunSummary) error
	Close()
}

// NoOpWriter discards everything. Used when DLQ mirroring is disabled.
type NoOpWriter struct{}

func (NoOpWriter) WriteDrop(ctx context.Context, raw *models.RawEvent, reason, lastError string) error {
	return nil
}

func (NoOpWriter) WriteRunSummary(ctx context.Context, summary *models.RunSummary) error {
	return nil
}

func (NoOpWriter) Close() {}
