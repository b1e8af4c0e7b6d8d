package domain

import "time"

// Call statuses reported by the backend. Only StatusCompleted and
// StatusStopped carry meaning for the dashboard; the rest are displayed as-is.
const (
	StatusInProgress = "in_progress"
	StatusCalling    = "calling"
	StatusAccepted   = "accepted"
	StatusMissed     = "missed"
	StatusDeclined   = "declined"
	StatusFailed     = "failed"
	StatusCompleted  = "completed"
	StatusStopped    = "stopped"
)

// CallSession is the backend's acknowledgement of a started campaign run.
type CallSession struct {
	SessionID  int64  `json:"session_id"`
	TotalCalls int    `json:"total_calls"`
	Status     string `json:"status,omitempty"`
}

// CallStatusUpdate is the payload of a callStatusUpdate socket event.
type CallStatusUpdate struct {
	SessionID      int64    `json:"sessionId"`
	Status         string   `json:"status"`
	CurrentIndex   int      `json:"currentIndex"`
	TotalCalls     int      `json:"totalCalls,omitempty"`
	CurrentContact *Contact `json:"currentContact,omitempty"`
	Attempt        int      `json:"attempt,omitempty"`
}

// CallHistoryUpdate is the payload of a callHistoryUpdate socket event.
type CallHistoryUpdate struct {
	SessionID int64            `json:"sessionId"`
	Entry     CallHistoryEntry `json:"entry"`
}

// CallHistoryEntry is the live per-contact outcome within a running session.
type CallHistoryEntry struct {
	Contact   Contact   `json:"contact"`
	Status    string    `json:"status"`
	Attempt   int       `json:"attempt"`
	Duration  int       `json:"duration,omitempty"` // seconds
	UpdatedAt time.Time `json:"updatedAt"`
}

// CallRecord is one row of the persisted call history.
type CallRecord struct {
	ID           string    `json:"id"`
	SessionID    int64     `json:"session_id"`
	ContactName  string    `json:"contact_name"`
	Phone        string    `json:"phone"`
	WorkflowName string    `json:"workflow_name,omitempty"`
	Status       string    `json:"status"`
	Attempts     int       `json:"attempts"`
	Duration     int       `json:"duration"` // seconds
	StartedAt    time.Time `json:"started_at"`
}

// CallHistoryPage is a page of call records.
type CallHistoryPage struct {
	Records []CallRecord `json:"records"`
	Page    int          `json:"page"`
	Total   int          `json:"total"`
}

// Terminal reports whether status ends a session.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusStopped
}
