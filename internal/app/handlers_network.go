package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/backendbuddy/backendbuddy/internal/adapter/network"
	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/store"
)

func (a *Application) linksHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.store.Get(r.Context())
	if err != nil || cfg.Port == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"links": map[string]any{}, "lan_ips": []string{}})
		return
	}

	lanIPs := network.LanIPs()
	links := network.GenerateLinks(cfg, lanIPs, a.ngrok.Status().URL, a.cloudflared.Status().URL)
	writeJSON(w, http.StatusOK, map[string]any{"links": links, "lan_ips": lanIPs})
}

func (a *Application) lanIPsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"lan_ips": network.LanIPs()})
}

type tunnelAction struct {
	Action string `json:"action"`
}

// tunnelController is the shared control surface of both tunnel managers.
type tunnelController interface {
	Start(requestedPort int) domain.TunnelResult
	Stop() domain.Result
}

func (a *Application) ngrokHandler(w http.ResponseWriter, r *http.Request) {
	a.controlTunnel(w, r, a.ngrok, "ngrok stopped")
}

func (a *Application) cloudflareHandler(w http.ResponseWriter, r *http.Request) {
	a.controlTunnel(w, r, a.cloudflared, "cloudflare stopped")
}

func (a *Application) controlTunnel(w http.ResponseWriter, r *http.Request, tc tunnelController, stopMessage string) {
	var action tunnelAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
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

	switch action.Action {
	case "start":
		if cfg.Port == 0 {
			writeJSON(w, http.StatusOK, domain.TunnelResult{Success: false, Message: "No port configured"})
			return
		}
		writeJSON(w, http.StatusOK, tc.Start(cfg.Port))

	case "stop":
		tc.Stop()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": stopMessage})

	default:
		writeError(w, http.StatusBadRequest, "Unknown action: "+action.Action)
	}
}
