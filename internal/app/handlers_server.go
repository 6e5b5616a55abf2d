package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/store"
)

type serverCommand struct {
	Action string `json:"action"`
}

func (a *Application) controlServerHandler(w http.ResponseWriter, r *http.Request) {
	var cmd serverCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cfg, err := a.store.Get(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Configuration not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if cfg.Directory == "" || cfg.Command == "" {
		writeError(w, http.StatusBadRequest, "Server directory and command must be configured")
		return
	}

	frontendDir, frontendCmd := frontendArgs(cfg)

	switch cmd.Action {
	case "start":
		result := a.supervisor.Start(cfg.Directory, cfg.Command, frontendDir, frontendCmd)
		writeJSON(w, http.StatusOK, result)

	case "stop":
		// Tunnels stay up across server stops so shared links persist.
		result := a.supervisor.Stop()
		writeJSON(w, http.StatusOK, result)

	case "restart":
		result := a.supervisor.Restart(cfg.Directory, cfg.Command, frontendDir, frontendCmd)
		if result.Success {
			a.ensureTunnels(cfg)
		}
		writeJSON(w, http.StatusOK, result)

	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

// frontendArgs drops the frontend when it shares the backend directory,
// which would spawn the same app twice on one port.
func frontendArgs(cfg *domain.ProjectConfig) (dir, command string) {
	if cfg.FrontendDirectory == "" || cfg.FrontendCommand == "" {
		return "", ""
	}
	if filepath.Clean(cfg.FrontendDirectory) == filepath.Clean(cfg.Directory) {
		return "", ""
	}
	return cfg.FrontendDirectory, cfg.FrontendCommand
}

// ensureTunnels restarts any enabled tunnel whose agent died while the
// dev server was down.
func (a *Application) ensureTunnels(cfg *domain.ProjectConfig) {
	if cfg.Port == 0 {
		return
	}
	if cfg.NgrokEnabled {
		a.ngrok.EnsureRunning(cfg.Port)
	}
	if cfg.CloudflareEnabled {
		a.cloudflared.EnsureRunning(cfg.Port)
	}
}

func (a *Application) serverStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.supervisor.Status())
}

func (a *Application) serverLogsHandler(w http.ResponseWriter, r *http.Request) {
	count := 50
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": a.supervisor.RecentLogs(count)})
}
