package app

import (
	"net/http"

	"github.com/backendbuddy/backendbuddy/internal/core/constants"
)

func (a *Application) registerRoutes() {
	// Admin surface.
	a.registry.RegisterWithMethod("/api/config", a.getConfigHandler, "Project configuration", "GET")
	a.registry.RegisterWithMethod("/api/config", a.updateConfigHandler, "Update project configuration", "PUT")
	a.registry.RegisterWithMethod("/api/server", a.controlServerHandler, "Start/stop/restart dev server", "POST")
	a.registry.RegisterWithMethod("/api/server/status", a.serverStatusHandler, "Dev server status", "GET")
	a.registry.RegisterWithMethod("/api/server/logs", a.serverLogsHandler, "Recent dev server logs", "GET")
	a.registry.RegisterWithMethod("/api/links", a.linksHandler, "Shareable access links", "GET")
	a.registry.RegisterWithMethod("/api/network/lan-ips", a.lanIPsHandler, "Detected LAN addresses", "GET")
	a.registry.RegisterWithMethod("/api/ngrok", a.ngrokHandler, "ngrok tunnel control", "POST")
	a.registry.RegisterWithMethod("/api/cloudflare", a.cloudflareHandler, "cloudflared tunnel control", "POST")

	// Queue.
	a.registry.RegisterWithMethod("/api/queue/join", a.queueJoinHandler, "Join the waiting room", "POST")
	a.registry.RegisterWithMethod("/api/queue/leave", a.queueLeaveHandler, "Leave the waiting room", "POST")
	a.registry.RegisterWithMethod("/api/queue/heartbeat", a.queueHeartbeatHandler, "Queue liveness ping", "POST")
	a.registry.RegisterWithMethod("/api/queue/status", a.queueStateHandler, "Full queue snapshot", "GET")
	a.registry.RegisterWithMethod("/api/queue/status/{session}", a.queueSessionStatusHandler, "Per-session queue status", "GET")

	// Traffic.
	a.registry.RegisterWithMethod("/api/traffic/metrics", a.trafficMetricsHandler, "Aggregated traffic metrics", "GET")
	a.registry.RegisterWithMethod("/api/traffic/requests", a.trafficRequestsHandler, "Recent request history", "GET")
	a.registry.RegisterWithMethod("/api/traffic/endpoints", a.trafficEndpointsHandler, "Per-endpoint statistics", "GET")
	a.registry.RegisterWithMethod("/api/traffic/connections", a.trafficConnectionsHandler, "Active WebSocket connections", "GET")
	a.registry.RegisterWithMethod("/api/traffic/clear", a.trafficClearHandler, "Reset traffic data", "DELETE")

	// WebSockets.
	a.registry.RegisterWithMethod("/ws/logs", a.wsLogsHandler, "Live dev server log stream", "GET")
	a.registry.RegisterWithMethod("/ws/queue", a.wsQueueHandler, "Live queue snapshots", "GET")
	a.registry.RegisterWithMethod("/ws/traffic", a.wsTrafficHandler, "Live request events", "GET")

	// Proxy surface: /preview plus the asset paths target apps expect at
	// the site root.
	a.registry.Register("/preview", a.proxy.ServeHTTP, "Reverse proxy to target (exact)")
	a.registry.Register("/preview/", a.proxy.ServeHTTP, "Reverse proxy to target")
	for _, path := range constants.AssetPaths {
		a.registry.Register(path, a.proxy.ServeHTTP, "Asset passthrough to target")
	}

	// Root: loopback gets the status body, external hosts fall through to
	// the proxy.
	a.registry.Register("/{$}", a.rootHandler, "Host-routed root")
}

// rootHandler serves the admin status JSON to loopback hosts and proxies
// everyone else, which is how tunnel and LAN visitors reach the app at /.
func (a *Application) rootHandler(w http.ResponseWriter, r *http.Request) {
	if a.isLoopbackRequest(r) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "BackendBuddy API",
			"status":  "running",
		})
		return
	}
	a.proxy.ServeHTTP(w, r)
}
