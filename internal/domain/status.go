// Scan job status graph:
//
//	pending ──► processing ──► completed
//	                 │
//	                 └───────► failed ──► pending   (explicit retry only)
//
// completed is terminal; failed is terminal until a caller retries.
package domain

import "fmt"

// Status values mirror the scan_status enum in PostgreSQL.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// validTransitions lists every allowed (from → to) pair. failed → pending is
// the retry re-enqueue; worker pickup performs pending → processing.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusPending},
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown scan status %q", s)
}

// CanTransition returns true when moving from → to is permitted.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends automatic progression.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanRetry reports whether a retry request is acceptable for this status.
func (s Status) CanRetry() bool { return s == StatusFailed }
