package messaging

import (
	"strings"
	"testing"
)

func TestSubjectConstants_Defined(t *testing.T) {
	subjects := map[string]string{
		"SubjectBridgeDLQ":  SubjectBridgeDLQ,
		"SubjectBridgeRuns": SubjectBridgeRuns,
	}

	for name, value := range subjects {
		if value == "" {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestDLQSubject(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"invalid_payload", "bridge.dlq.invalid_payload"},
		{"retry_exhausted", "bridge.dlq.retry_exhausted"},
		{"duplicate_event_id", "bridge.dlq.duplicate_event_id"},
	}

	for _, tt := range tests {
		if got := DLQSubject(tt.reason); got != tt.want {
			t.Errorf("DLQSubject(%q) = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestDLQSubjects_UnderStreamPrefix(t *testing.T) {
	// Every per-reason subject must land under the DLQ stream's capture
	// pattern bridge.dlq.>
	for _, reason := range []string{"invalid_payload", "retry_exhausted", "duplicate_event_id"} {
		subject := DLQSubject(reason)
		if !strings.HasPrefix(subject, SubjectBridgeDLQ+".") {
			t.Errorf("subject %q is outside the stream prefix %q", subject, SubjectBridgeDLQ)
		}
	}
}
