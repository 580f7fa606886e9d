package worker

import "time"

// MaxAttempts is the failed-attempt budget for one raw event. Reaching it
// drops the event terminally with reason retry_exhausted.
const MaxAttempts = 3

const (
	baseBackoff = 15 * time.Second
	maxBackoff  = 5 * time.Minute
)

// Backoff returns the delay before the next attempt after `attempt` failed
// attempts. The schedule doubles from 15s and caps at 5 minutes:
// 15s, 30s, 60s, 120s, 240s, 300s, 300s, ...
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
