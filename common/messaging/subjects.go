package messaging

// Subject constants for the bridge message bus.
// Follow the pattern: {domain}.{action}.{resource}
const (
	// SubjectBridgeDLQ is the prefix for terminally dropped raw events.
	// The drop reason is appended: bridge.dlq.invalid_payload
	SubjectBridgeDLQ = "bridge.dlq"

	// SubjectBridgeRuns carries worker run summaries for operational records.
	SubjectBridgeRuns = "bridge.worker.runs"
)

// Queue group names for load-balanced consumers.
const (
	QueueDLQInspectors = "bridge-dlq-inspectors"
)

// DLQSubject returns the DLQ subject for a specific drop reason.
// Example: bridge.dlq.retry_exhausted
func DLQSubject(reason string) string {
	return SubjectBridgeDLQ + "." + reason
}
