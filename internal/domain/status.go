package domain

import (
	"slices"
	"strings"
)

// Status names the lane a todo sits in.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

var knownStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

// DefaultLanes returns the board lane order.
func DefaultLanes() []Status {
	return slices.Clone(knownStatuses)
}

// ParseStatus matches raw input case-insensitively against known statuses.
// Separators are ignored so "in_progress" and "in-progress" resolve too.
func ParseStatus(raw string) (Status, error) {
	key := normalizeStatusKey(raw)
	if key == "" {
		return "", ErrInvalidStatus
	}
	for _, status := range knownStatuses {
		if normalizeStatusKey(string(status)) == key {
			return status, nil
		}
	}
	return "", ErrInvalidStatus
}

// StatusFromCompleted maps the remote completed flag onto a lane.
func StatusFromCompleted(completed bool) Status {
	if completed {
		return StatusCompleted
	}
	return StatusPending
}

// Completed reports the remote completed flag for a status.
func (s Status) Completed() bool {
	return s == StatusCompleted
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return slices.Contains(knownStatuses, s)
}

func normalizeStatusKey(raw string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return replacer.Replace(strings.ToLower(strings.TrimSpace(raw)))
}
