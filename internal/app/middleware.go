package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/backendbuddy/backendbuddy/internal/core/constants"
	"github.com/backendbuddy/backendbuddy/internal/util"
)

// responseRecorder captures status and body size for the traffic recorder.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the WebSocket upgrader needs for hijacking.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// trafficMiddleware observes every request except the traffic surface
// itself, which would otherwise feed back into its own metrics.
func (a *Application) trafficMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasPrefix(path, constants.TrafficAPIPrefix) || strings.HasPrefix(path, constants.TrafficSocketPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		// WebSocket upgrades hijack the connection; the wrapper cannot
		// observe them, so record only plain HTTP.
		if strings.HasPrefix(path, constants.AdminSocketPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		latency := float64(time.Since(start).Microseconds()) / 1000.0

		bytesIn := r.ContentLength
		if bytesIn < 0 {
			bytesIn = 0
		}

		a.recorder.Record(
			r.Method,
			r.URL.RequestURI(),
			rec.status,
			latency,
			util.ResolveClientIP(r),
			r.UserAgent(),
			bytesIn,
			rec.bytes,
		)
	})
}

// recoveryMiddleware converts a handler panic into a 500 response so one
// bad request cannot take the service down.
func (a *Application) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.Error("Handler panic", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"detail": fmt.Sprint(rec),
					"type":   fmt.Sprintf("%T", rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
