package domain

// Admission status values for a session.
const (
	StatusActive  = "active"
	StatusWaiting = "waiting"
)

// JoinResult is the admission decision returned by join.
type JoinResult struct {
	SessionID   string `json:"session_id"`
	Status      string `json:"status"`
	Position    int    `json:"position"`
	QueueLength int    `json:"queue_length,omitempty"`
	Message     string `json:"message"`
}

// HeartbeatResult reports the session's standing after a liveness ping.
type HeartbeatResult struct {
	Success     bool   `json:"success"`
	Status      string `json:"status,omitempty"`
	Position    int    `json:"position"`
	QueueLength int    `json:"queue_length,omitempty"`
	Message     string `json:"message,omitempty"`
}

// SessionStatus is the read-only view of one session.
type SessionStatus struct {
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	Position      int    `json:"position"`
	QueueLength   int    `json:"queue_length,omitempty"`
	EstimatedWait int    `json:"estimated_wait,omitempty"`
}

// WaitingUser is one waiting-list row in a queue snapshot.
type WaitingUser struct {
	SessionID string `json:"session_id"`
	Position  int    `json:"position"`
	WaitTime  int    `json:"wait_time"`
}

// QueueState is the full snapshot fanned out to queue subscribers.
type QueueState struct {
	ActiveCount   int           `json:"active_count"`
	MaxConcurrent int           `json:"max_concurrent"`
	ActiveUsers   []string      `json:"active_users"`
	QueueLength   int           `json:"queue_length"`
	WaitingUsers  []WaitingUser `json:"waiting_users"`
}
