package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/store"
	"github.com/backendbuddy/backendbuddy/internal/util"
)

func (a *Application) isLoopbackRequest(r *http.Request) bool {
	return util.IsLoopbackHost(util.HostWithoutPort(r.Host))
}

type configResponse struct {
	Name                string `json:"name"`
	Directory           string `json:"directory"`
	Command             string `json:"command"`
	FrontendDirectory   string `json:"frontend_directory"`
	FrontendCommand     string `json:"frontend_command"`
	Port                int    `json:"port"`
	LanIP               string `json:"lan_ip"`
	LanEnabled          bool   `json:"lan_enabled"`
	NgrokEnabled        bool   `json:"ngrok_enabled"`
	CloudflareEnabled   bool   `json:"cloudflare_enabled"`
	QueueEnabled        bool   `json:"queue_enabled"`
	MaxConcurrentUsers  int    `json:"max_concurrent_users"`
	PrioritizeLocalhost bool   `json:"prioritize_localhost"`
	UpdatedAt           string `json:"updated_at,omitempty"`
}

func (a *Application) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.store.Get(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Configuration not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := configResponse{
		Name:                cfg.Name,
		Directory:           cfg.Directory,
		Command:             cfg.Command,
		FrontendDirectory:   cfg.FrontendDirectory,
		FrontendCommand:     cfg.FrontendCommand,
		Port:                cfg.Port,
		LanIP:               cfg.LanIP,
		LanEnabled:          cfg.LanEnabled,
		NgrokEnabled:        cfg.NgrokEnabled,
		CloudflareEnabled:   cfg.CloudflareEnabled,
		QueueEnabled:        cfg.QueueEnabled,
		MaxConcurrentUsers:  cfg.MaxConcurrentUsers,
		PrioritizeLocalhost: cfg.PrioritizeLocalhost,
	}
	if !cfg.UpdatedAt.IsZero() {
		resp.UpdatedAt = cfg.UpdatedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Application) updateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var patch domain.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := a.store.Update(r.Context(), patch)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Configuration not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Queue settings take effect immediately for new admissions.
	a.admission.Configure(updated.MaxConcurrentUsers, updated.PrioritizeLocalhost)

	a.logger.Info("Configuration updated", "name", updated.Name, "port", updated.Port)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Configuration updated"})
}
