package replacement

import "strings"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) String() string { return string(s) }

func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(s)) {
	case StatusPending:
		return StatusPending, true
	case StatusProcessing:
		return StatusProcessing, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

// IsActive reports whether the request still blocks a new replacement for
// the same order. At most one active replacement may exist per order.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// CanTransitionTo encodes the replacement lifecycle:
// pending --(approve)--> processing --(dispatch ok)--> completed;
// pending --(reject)--> failed; processing --(dispatch error)--> failed.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}
