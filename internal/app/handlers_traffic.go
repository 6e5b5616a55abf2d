package app

import (
	"net/http"
	"strconv"
)

func (a *Application) trafficMetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.recorder.Metrics(a.conns.count()))
}

func (a *Application) trafficRequestsHandler(w http.ResponseWriter, r *http.Request) {
	count := 50
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": a.recorder.Recent(count)})
}

func (a *Application) trafficEndpointsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": a.recorder.Endpoints()})
}

func (a *Application) trafficConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	connections := a.conns.list()
	writeJSON(w, http.StatusOK, map[string]any{
		"connections": connections,
		"count":       len(connections),
	})
}

func (a *Application) trafficClearHandler(w http.ResponseWriter, r *http.Request) {
	a.recorder.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Traffic data cleared"})
}
