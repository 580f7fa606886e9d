package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ghostlink/bridge-stack/collector/internal/models"
)

// ErrInvalidPayload marks a structural failure: the payload cannot be
// decoded into the expected shape, or carries an unrecognized event type.
// Structural failures are non-retryable.
var ErrInvalidPayload = errors.New("invalid payload")

// Event types the canonical schema understands. Payloads carrying anything
// else fail normalization terminally.
var recognizedEventTypes = map[string]bool{
	"pageview":     true,
	"engaged_15s":  true,
	"hidden":       true,
	"leave":        true,
	"heartbeat":    true,
	"route_change": true,
	"custom":       true,
}

// Normalizer turns raw event payloads into canonical events.
type Normalizer struct{}

func New() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes the stored payload of a raw event and projects it into a
// CanonicalEvent. It returns ErrInvalidPayload (possibly wrapped) for
// structural failures; any other error is considered transient by callers.
func (n *Normalizer) Normalize(raw *models.RawEvent) (*models.CanonicalEvent, error) {
	var shape map[string]any
	if err := json.Unmarshal(raw.Payload, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if shape == nil {
		return nil, fmt.Errorf("%w: payload is null", ErrInvalidPayload)
	}

	var env models.Envelope
	if err := json.Unmarshal(raw.Payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	eventType := env.EventType
	if eventType == "" {
		eventType = raw.EventType
	}
	if !recognizedEventTypes[eventType] {
		return nil, fmt.Errorf("%w: unrecognized event type %q", ErrInvalidPayload, eventType)
	}

	occurredAt := raw.ReceivedAt
	if env.OccurredAt != "" {
		if ts, err := time.Parse(time.RFC3339, env.OccurredAt); err == nil {
			occurredAt = ts.UTC()
		}
	}

	return &models.CanonicalEvent{
		SiteID:     raw.SiteID,
		EventID:    raw.EventID,
		SessionID:  models.Clip(env.SessionID, models.MaxSessionIDLen),
		EventType:  eventType,
		PageURL:    models.Clip(env.PageURL, models.MaxPageURLLen),
		PageTitle:  models.Clip(env.PageTitle, models.MaxPageTitleLen),
		Referrer:   models.Clip(env.Referrer, models.MaxReferrerLen),
		Language:   models.Clip(env.Language, models.MaxLanguageLen),
		Timezone:   models.Clip(env.Timezone, models.MaxTimezoneLen),
		Viewport:   models.Clip(env.Viewport, models.MaxViewportLen),
		UserAgent:  models.Clip(raw.UserAgent, models.MaxUserAgentLen),
		OccurredAt: occurredAt,
	}, nil
}

// IsStructural reports whether err is a non-retryable payload failure.
func IsStructural(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}
