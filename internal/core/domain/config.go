package domain

import "time"

// ProjectConfig is the single persisted configuration record. The data
// plane reads it at every admission decision and tunnel start; mutation
// happens only through the admin API.
type ProjectConfig struct {
	Name                string    `json:"name"`
	Directory           string    `json:"directory"`
	Command             string    `json:"command"`
	FrontendDirectory   string    `json:"frontend_directory"`
	FrontendCommand     string    `json:"frontend_command"`
	Port                int       `json:"port"`
	LanIP               string    `json:"lan_ip"`
	LanEnabled          bool      `json:"lan_enabled"`
	NgrokEnabled        bool      `json:"ngrok_enabled"`
	CloudflareEnabled   bool      `json:"cloudflare_enabled"`
	QueueEnabled        bool      `json:"queue_enabled"`
	MaxConcurrentUsers  int       `json:"max_concurrent_users"`
	PrioritizeLocalhost bool      `json:"prioritize_localhost"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ConfigUpdate is a partial update; nil fields are left unchanged.
type ConfigUpdate struct {
	Name                *string `json:"name"`
	Directory           *string `json:"directory"`
	Command             *string `json:"command"`
	FrontendDirectory   *string `json:"frontend_directory"`
	FrontendCommand     *string `json:"frontend_command"`
	Port                *int    `json:"port"`
	LanIP               *string `json:"lan_ip"`
	LanEnabled          *bool   `json:"lan_enabled"`
	NgrokEnabled        *bool   `json:"ngrok_enabled"`
	CloudflareEnabled   *bool   `json:"cloudflare_enabled"`
	QueueEnabled        *bool   `json:"queue_enabled"`
	MaxConcurrentUsers  *int    `json:"max_concurrent_users"`
	PrioritizeLocalhost *bool   `json:"prioritize_localhost"`
}
