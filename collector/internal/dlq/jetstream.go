package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/ghostlink/bridge-stack/collector/internal/metrics"
	"github.com/ghostlink/bridge-stack/collector/internal/models"
	"github.com/ghostlink/bridge-stack/common/logging"
	"github.com/ghostlink/bridge-stack/common/messaging"
	"github.com/ghostlink/bridge-stack/common/messaging/nats"
)

// JetStreamQueue writes dropped events to NATS JetStream for centralized DLQ.
// Safe for use across multiple collector instances.
type JetStreamQueue struct {
	js      *nats.JetStreamClient
	stream  jetstream.Stream
	logger  *logging.Logger
	written uint64
}

// NewJetStreamQueue creates a DLQ backed by NATS JetStream.
func NewJetStreamQueue(ctx context.Context, js *nats.JetStreamClient, logger *logging.Logger) (*JetStreamQueue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	stream, err := js.CreateOrUpdateStream(ctx, nats.BridgeDLQStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	logger.Info("DLQ stream ready", "stream", nats.BridgeDLQStream.Name)

	return &JetStreamQueue{
		js:     js,
		stream: stream,
		logger: logger,
	}, nil
}

// WriteDrop records a terminally dropped raw event to the JetStream DLQ.
func (q *JetStreamQueue) WriteDrop(ctx context.Context, raw *models.RawEvent, reason, lastError string) error {
	if q == nil {
		return nil
	}

	dropped := DroppedEvent{
		Timestamp:  time.Now().UTC(),
		SiteID:     raw.SiteID,
		RawEventID: raw.ID,
		EventID:    raw.EventID,
		ScriptID:   raw.ScriptID,
		EventType:  raw.EventType,
		Reason:     reason,
		LastError:  lastError,
		RetryCount: raw.RetryCount,
		Payload:    string(raw.Payload),
	}

	data, err := json.Marshal(dropped)
	if err != nil {
		q.logger.Error("failed to marshal DLQ entry", logging.Error(err))
		return err
	}

	if _, err := q.js.PublishSync(ctx, messaging.DLQSubject(reason), data); err != nil {
		q.logger.Error("failed to publish DLQ entry", logging.Error(err), logging.Reason(reason))
		return err
	}

	atomic.AddUint64(&q.written, 1)
	metrics.DLQPublished.Inc()

	return nil
}

// WriteRunSummary publishes a worker run summary to the run-records subject.
func (q *JetStreamQueue) WriteRunSummary(ctx context.Context, summary *models.RunSummary) error {
	if q == nil {
		return nil
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	if _, err := q.js.PublishSync(ctx, messaging.SubjectBridgeRuns, data); err != nil {
		q.logger.Error("failed to publish run summary", logging.Error(err))
		return err
	}

	return nil
}

// Stats returns DLQ metrics from JetStream.
func (q *JetStreamQueue) Stats(ctx context.Context) map[string]interface{} {
	if q == nil {
		return map[string]interface{}{
			"enabled": false,
			"backend": "jetstream",
		}
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		q.logger.Error("failed to get DLQ stream info", logging.Error(err))
		return map[string]interface{}{
			"enabled":       true,
			"backend":       "jetstream",
			"written_local": atomic.LoadUint64(&q.written),
			"error":         err.Error(),
		}
	}

	return map[string]interface{}{
		"enabled":        true,
		"backend":        "jetstream",
		"written_local":  atomic.LoadUint64(&q.written),
		"total_messages": info.State.Msgs,
		"total_bytes":    info.State.Bytes,
		"first_seq":      info.State.FirstSeq,
		"last_seq":       info.State.LastSeq,
		"consumer_count": info.State.Consumers,
	}
}

// List returns dropped events from the JetStream DLQ, oldest first.
func (q *JetStreamQueue) List(ctx context.Context, limit int) ([]DroppedEvent, error) {
	if q == nil {
		return nil, ErrNotEnabled
	}

	if limit <= 0 {
		limit = 100
	}

	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: messaging.SubjectBridgeDLQ + ".>",
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		MaxDeliver:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create list consumer: %w", err)
	}

	var events []DroppedEvent
	msgs, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	for msg := range msgs.Messages() {
		var dropped DroppedEvent
		if err := json.Unmarshal(msg.Data(), &dropped); err != nil {
			q.logger.Error("failed to parse DLQ message", logging.Error(err))
			continue
		}
		events = append(events, dropped)
	}

	if msgs.Error() != nil {
		q.logger.Warn("fetch completed with error", logging.Error(msgs.Error()))
	}

	return events, nil
}

// Purge removes all events from the DLQ stream.
func (q *JetStreamQueue) Purge(ctx context.Context) error {
	if q == nil {
		return ErrNotEnabled
	}

	if err := q.stream.Purge(ctx); err != nil {
		return fmt.Errorf("purge dlq stream: %w", err)
	}

	q.logger.Info("purged all messages from DLQ stream")
	return nil
}

// Close drains the underlying NATS connection.
func (q *JetStreamQueue) Close() {
	if q == nil || q.js == nil {
		return
	}
	_ = q.js.Drain()
}
