package consts

import "strings"

// Response statuses reported by the agent service. The set is open ended;
// anything not listed here is treated as still running.
const (
	StatusPending    = "pending"
	StatusRunning    = "running"
	StatusInProgress = "in_progress"
	StatusProcessing = "processing"

	StatusCompleted = "completed"
	StatusSuccess   = "success"
	StatusDone      = "done"

	StatusFailed = "failed"
	StatusError  = "error"
)

// IsSuccessStatus reports whether status is one of the terminal success values.
func IsSuccessStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusCompleted, StatusSuccess, StatusDone:
		return true
	}
	return false
}

// IsFailureStatus reports whether status is one of the terminal failure values.
func IsFailureStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusFailed, StatusError:
		return true
	}
	return false
}
