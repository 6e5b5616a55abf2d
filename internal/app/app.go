// Package app wires the admission controller, supervisor, tunnels, traffic
// recorder and broadcast hub behind the single admin port.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/backendbuddy/backendbuddy/internal/adapter/admission"
	"github.com/backendbuddy/backendbuddy/internal/adapter/broadcast"
	"github.com/backendbuddy/backendbuddy/internal/adapter/proxy"
	"github.com/backendbuddy/backendbuddy/internal/adapter/supervisor"
	"github.com/backendbuddy/backendbuddy/internal/adapter/traffic"
	"github.com/backendbuddy/backendbuddy/internal/adapter/tunnel"
	"github.com/backendbuddy/backendbuddy/internal/config"
	"github.com/backendbuddy/backendbuddy/internal/logger"
	"github.com/backendbuddy/backendbuddy/internal/router"
	"github.com/backendbuddy/backendbuddy/internal/store"
)

const reapInterval = 10 * time.Second

// Application owns every component and the HTTP server that fronts them.
type Application struct {
	config   *config.Config
	server   *http.Server
	logger   *logger.StyledLogger
	registry *router.RouteRegistry

	store       *store.Store
	hub         *broadcast.Hub
	recorder    *traffic.Recorder
	admission   *admission.Controller
	supervisor  *supervisor.Supervisor
	ngrok       *tunnel.NgrokManager
	cloudflared *tunnel.CloudflaredManager
	proxy       *proxy.Proxy

	conns *connTracker

	reaperCancel context.CancelFunc
	reaperDone   chan struct{}
	stopOnce     sync.Once
	errCh        chan error
}

// New builds the full component graph from service configuration.
func New(cfg *config.Config, log *logger.StyledLogger) (*Application, error) {
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config store: %w", err)
	}

	hub := broadcast.NewHub()
	recorder := traffic.NewRecorder(hub)
	controller := admission.NewController(hub)
	super := supervisor.New(hub, log)

	// Tunnel agents expose the admin port while the waiting room gates
	// traffic, otherwise the target port directly.
	resolvePort := func(requested int) int {
		queueEnabled := true
		if pc, err := st.Get(context.Background()); err == nil {
			queueEnabled = pc.QueueEnabled
		}
		return tunnel.ResolveTargetPort(queueEnabled, cfg.Server.Port, requested)
	}

	app := &Application{
		config:      cfg,
		logger:      log,
		registry:    router.NewRouteRegistry(log),
		store:       st,
		hub:         hub,
		recorder:    recorder,
		admission:   controller,
		supervisor:  super,
		ngrok:       tunnel.NewNgrokManager(resolvePort, log),
		cloudflared: tunnel.NewCloudflaredManager(resolvePort, log),
		proxy:       proxy.New(st, controller, log),
		conns:       newConnTracker(),
		errCh:       make(chan error, 1),
	}

	app.server = &http.Server{
		Addr:         cfg.Server.GetAddress(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return app, nil
}

// Start seeds the admission settings, launches the reaper and brings up
// the web server.
func (a *Application) Start(ctx context.Context) error {
	if pc, err := a.store.Get(ctx); err == nil {
		a.admission.Configure(pc.MaxConcurrentUsers, pc.PrioritizeLocalhost)
	}

	reaperCtx, cancel := context.WithCancel(context.Background())
	a.reaperCancel = cancel
	a.reaperDone = make(chan struct{})
	go a.runReaper(reaperCtx)

	go func() {
		select {
		case err := <-a.errCh:
			a.logger.Error("Server startup error", "error", err)
		case <-ctx.Done():
		}
	}()

	if err := a.startWebServer(); err != nil {
		return err
	}

	a.logger.InfoHighlight("BackendBuddy started on", a.server.Addr)
	return nil
}

// runReaper evicts silent queue sessions on a fixed cadence.
func (a *Application) runReaper(ctx context.Context) {
	defer close(a.reaperDone)

	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.admission.Reap()
		}
	}
}

// Stop tears everything down: reaper, tunnels, supervisor, hub, web server
// and finally the store.
func (a *Application) Stop(ctx context.Context) error {
	var shutdownErr error

	a.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.config.Server.ShutdownTimeout)
		defer cancel()

		if a.reaperCancel != nil {
			a.reaperCancel()
			<-a.reaperDone
		}

		a.ngrok.Stop()
		a.cloudflared.Stop()
		a.supervisor.Stop()
		a.hub.Shutdown()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}

		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close config store", "error", err)
		}
	})

	return shutdownErr
}
