package gps

import "time"

// Freshness classifies how recent a crew member's latest fix is. It answers
// "is this data fresh", not "is this person working" (that is DispatchStatus).
type Freshness string

const (
	FreshnessActive  Freshness = "active"
	FreshnessIdle    Freshness = "idle"
	FreshnessOffline Freshness = "offline"
)

// Default classification windows. A fix exactly on a boundary falls into the
// older bucket.
const (
	FreshnessActiveWindow = 5 * time.Minute
	FreshnessIdleWindow   = 30 * time.Minute
)

// ClassifyFreshness buckets a capture time by its age relative to now.
func ClassifyFreshness(capturedAt, now time.Time) Freshness {
	return ClassifyFreshnessAge(now.Sub(capturedAt))
}

// ClassifyFreshnessAge buckets an elapsed-time value: under 5 minutes is
// active, under 30 minutes is idle, everything else is offline.
func ClassifyFreshnessAge(age time.Duration) Freshness {
	switch {
	case age < FreshnessActiveWindow:
		return FreshnessActive
	case age < FreshnessIdleWindow:
		return FreshnessIdle
	default:
		return FreshnessOffline
	}
}
