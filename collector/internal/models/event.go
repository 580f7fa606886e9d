package models

import (
	"time"
	"unicode/utf8"
)

// Raw event lifecycle states. A row leaves pending exactly once; normalized
// and dropped are terminal.
const (
	StatusPending    = "pending"
	StatusNormalized = "normalized"
	StatusDropped    = "dropped"
)

// Closed set of terminal drop reasons. The quality gate and tests
// pattern-match on these, so free-text reasons are not allowed.
const (
	DropDuplicateEventID = "duplicate_event_id"
	DropInvalidPayload   = "invalid_payload"
	DropRetryExhausted   = "retry_exhausted"
)

// Intake rejection reasons, reported per batch but never stored.
const (
	RejectBatchLimitExceeded = "batch_limit_exceeded"
	RejectMissingEventID     = "missing_event_id"
	RejectMissingEventType   = "missing_event_type"
)

// Ingest sources recorded on raw rows.
const (
	SourceBatchPost = "batch_post"
	SourceLegacyGet = "legacy_get"
)

// Column width budgets; intake clips string fields rather than rejecting.
const (
	MaxEventIDLen   = 128
	MaxEventTypeLen = 64
	MaxSessionIDLen = 128
	MaxPageURLLen   = 1024
	MaxPageTitleLen = 512
	MaxReferrerLen  = 1024
	MaxLanguageLen  = 32
	MaxTimezoneLen  = 64
	MaxViewportLen  = 32
	MaxUserAgentLen = 255
	MaxLastErrorLen = 512
)

// Clip truncates s to at most max bytes. The cut never splits a multibyte
// rune; valid UTF-8 in means valid UTF-8 out, so clipped values remain
// storable as text columns.
func Clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 0 {
		max = 0
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Site is the narrow read-model of a customer site needed by the collector.
// Site ownership (creation, billing, RBAC) lives outside this subsystem.
type Site struct {
	ID        int64     `json:"id"`
	ScriptID  string    `json:"script_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Envelope is one client-submitted event as it arrives on the wire.
type Envelope struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	SessionID  string `json:"session_id,omitempty"`
	PageURL    string `json:"page_url,omitempty"`
	PageTitle  string `json:"page_title,omitempty"`
	Referrer   string `json:"referrer,omitempty"`
	Language   string `json:"language,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Viewport   string `json:"viewport,omitempty"`
	OccurredAt string `json:"occurred_at,omitempty"`
}

// BatchRequest is the batch intake payload. gx/gn/gs carry the event token
// (expiry, nonce, signature) issued alongside the collector script.
type BatchRequest struct {
	Events []Envelope `json:"events"`
	GX     string     `json:"gx"`
	GN     string     `json:"gn"`
	GS     string     `json:"gs"`
	SentAt string     `json:"sent_at,omitempty"`
}

// AcceptResult reports intake counts only; payload content is never echoed.
type AcceptResult struct {
	Accepted   int            `json:"accepted"`
	Duplicates int            `json:"duplicates"`
	Rejected   int            `json:"rejected"`
	Reasons    map[string]int `json:"reasons,omitempty"`
}

// RawEvent is one ingested, not-yet-normalized event. Rows are created by
// intake and mutated only by the normalization worker; they are never deleted.
type RawEvent struct {
	ID            int64      `json:"id"`
	SiteID        int64      `json:"site_id"`
	EventID       string     `json:"event_id"`
	ScriptID      string     `json:"script_id"`
	IngestSource  string     `json:"ingest_source"`
	EventType     string     `json:"event_type"`
	Payload       []byte     `json:"payload"`
	UserAgent     string     `json:"user_agent"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	DroppedReason string     `json:"dropped_reason,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
	NormalizedAt  *time.Time `json:"normalized_at,omitempty"`
}

// CanonicalEvent is the typed projection of a raw payload consumed by
// analytics. Created exactly once per normalized RawEvent, never mutated.
// EventID back-references the originating raw event for traceability.
type CanonicalEvent struct {
	ID         int64     `json:"id"`
	SiteID     int64     `json:"site_id"`
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id,omitempty"`
	EventType  string    `json:"event_type"`
	PageURL    string    `json:"page_url,omitempty"`
	PageTitle  string    `json:"page_title,omitempty"`
	Referrer   string    `json:"referrer,omitempty"`
	Language   string    `json:"language,omitempty"`
	Timezone   string    `json:"timezone,omitempty"`
	Viewport   string    `json:"viewport,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunOptions controls one worker invocation.
type RunOptions struct {
	// SiteID restricts the run to one site when non-nil.
	SiteID *int64 `json:"site_id,omitempty"`
	// Limit bounds rows processed per site per round.
	Limit int `json:"limit"`
	// Rounds is the number of sequential passes.
	Rounds int `json:"rounds"`
}

// RoundStats is the outcome of one round within a run.
type RoundStats struct {
	Round      int     `json:"round"`
	SiteIDs    []int64 `json:"site_ids"`
	Processed  int     `json:"processed"`
	Normalized int     `json:"normalized"`
	Retried    int     `json:"retried"`
	Dropped    int     `json:"dropped"`
}

// RunSummary aggregates all rounds of one worker invocation. Immutable once
// emitted; the quality gate and operational records consume it as-is.
type RunSummary struct {
	StartedAt       time.Time      `json:"started_at"`
	EndedAt         time.Time      `json:"ended_at"`
	ProcessedTotal  int            `json:"processed_total"`
	NormalizedTotal int            `json:"normalized_total"`
	RetriedTotal    int            `json:"retried_total"`
	DroppedTotal    int            `json:"dropped_total"`
	DroppedReasons  map[string]int `json:"dropped_reasons,omitempty"`
	Targets         []int64        `json:"targets"`
	Rounds          []RoundStats   `json:"rounds"`
}
