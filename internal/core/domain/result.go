package domain

// Result is the tagged outcome returned across supervisor and tunnel
// APIs; failures are data, not errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StartResult extends Result with the parent PIDs of spawned processes.
type StartResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	PID         int    `json:"pid,omitempty"`
	FrontendPID int    `json:"frontend_pid,omitempty"`
}

// ServerStatus is the supervisor's OS-verified view of the backend child.
type ServerStatus struct {
	Running bool `json:"running"`
	PID     int  `json:"pid,omitempty"`
	Uptime  int  `json:"uptime,omitempty"`
}

// TunnelResult is the outcome of a tunnel start attempt.
type TunnelResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

// TunnelStatus reports liveness of a tunnel agent and its public URL.
type TunnelStatus struct {
	Running bool   `json:"running"`
	URL     string `json:"url,omitempty"`
}
