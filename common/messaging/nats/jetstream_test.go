package nats

import (
	"strings"
	"testing"

	"github.com/ghostlink/bridge-stack/common/messaging"
)

// subjectCaptured reports whether a concrete subject is matched by one of the
// stream's capture patterns (exact token match, with ">" as a trailing
// wildcard, per NATS subject semantics).
func subjectCaptured(cfg StreamConfig, subject string) bool {
	for _, pattern := range cfg.Subjects {
		if patternMatches(pattern, subject) {
			return true
		}
	}
	return false
}

func patternMatches(pattern, subject string) bool {
	pTokens := strings.Split(pattern, ".")
	sTokens := strings.Split(subject, ".")

	for i, p := range pTokens {
		if p == ">" {
			return i < len(sTokens)
		}
		if i >= len(sTokens) {
			return false
		}
		if p != "*" && p != sTokens[i] {
			return false
		}
	}
	return len(pTokens) == len(sTokens)
}

func TestBridgeDLQStream_CapturesDropSubjects(t *testing.T) {
	reasons := []string{"duplicate_event_id", "invalid_payload", "retry_exhausted"}
	for _, reason := range reasons {
		subject := messaging.DLQSubject(reason)
		if !subjectCaptured(BridgeDLQStream, subject) {
			t.Errorf("stream %s does not capture drop subject %q", BridgeDLQStream.Name, subject)
		}
	}
}

func TestBridgeDLQStream_CapturesRunSummaries(t *testing.T) {
	// Run summaries publish to their own subject; a JetStream publish to a
	// subject no stream captures is rejected, so the stream must cover it.
	if !subjectCaptured(BridgeDLQStream, messaging.SubjectBridgeRuns) {
		t.Errorf("stream %s does not capture run summary subject %q",
			BridgeDLQStream.Name, messaging.SubjectBridgeRuns)
	}
}

func TestPatternMatches(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"bridge.dlq.>", "bridge.dlq.invalid_payload", true},
		{"bridge.dlq.>", "bridge.dlq", false},
		{"bridge.dlq.>", "bridge.worker.runs", false},
		{"bridge.worker.runs", "bridge.worker.runs", true},
		{"bridge.worker.runs", "bridge.worker.runs.extra", false},
	}

	for _, tt := range tests {
		if got := patternMatches(tt.pattern, tt.subject); got != tt.want {
			t.Errorf("patternMatches(%q, %q) = %v, want %v", tt.pattern, tt.subject, got, tt.want)
		}
	}
}
