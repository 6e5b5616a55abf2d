package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/backendbuddy/backendbuddy/internal/core/constants"
	"github.com/backendbuddy/backendbuddy/pkg/tlsutil"
)

func (a *Application) startWebServer() error {
	a.logger.Info("Starting WebServer...", "host", a.config.Server.Host, "port", a.config.Server.Port)

	mux := http.NewServeMux()
	a.registerRoutes()
	a.registry.WireUp(mux)

	a.server.Handler = a.recoveryMiddleware(a.trafficMiddleware(mux))

	if a.config.TLS.Enabled {
		if err := tlsutil.EnsureCertPair(a.config.TLS.CertFile, a.config.TLS.KeyFile); err != nil {
			return err
		}
		a.logger.Info("HTTPS enabled", "cert", a.config.TLS.CertFile)
	}

	go func() {
		var err error
		if a.config.TLS.Enabled {
			err = a.server.ListenAndServeTLS(a.config.TLS.CertFile, a.config.TLS.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", "error", err)
			a.errCh <- err
		}
	}()

	a.logger.Info("Started WebServer", "bind", a.server.Addr)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
