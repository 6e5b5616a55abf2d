// Package proxy forwards gated traffic to the target dev server, serving
// the waiting room to sessions the admission controller holds back.
package proxy

import (
	"context"
	"crypto/tls"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/backendbuddy/backendbuddy/internal/core/constants"
	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/logger"
	"github.com/backendbuddy/backendbuddy/internal/store"
	"github.com/backendbuddy/backendbuddy/internal/util"
)

//go:embed waiting_room.html
var waitingRoomFS embed.FS

const forwardTimeout = 30 * time.Second

// ConfigSource yields the current project configuration per request so a
// settings change applies without a restart.
type ConfigSource interface {
	Get(ctx context.Context) (*domain.ProjectConfig, error)
}

// Admission is the slice of the controller the proxy needs.
type Admission interface {
	Configure(maxConcurrent int, prioritizeLocalhost bool)
	Join(sessionID string, isLocalhost bool) domain.JoinResult
	Heartbeat(sessionID string) domain.HeartbeatResult
}

// Proxy is an http.Handler covering the /preview family, asset paths and
// external root requests.
type Proxy struct {
	config    ConfigSource
	admission Admission
	transport http.RoundTripper
	log       *logger.StyledLogger
}

func New(config ConfigSource, admission Admission, log *logger.StyledLogger) *Proxy {
	return &Proxy{
		config:    config,
		admission: admission,
		transport: newTransport(),
		log:       log,
	}
}

// newTransport builds the upstream transport. Redirects pass through
// untouched because RoundTrip is used directly.
func newTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg, err := p.config.Get(r.Context())
	if err != nil || cfg.Port == 0 {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			p.log.Error("Config read failed during proxy", "error", err)
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "No project configured"})
		return
	}

	clientIP := util.ResolveClientIP(r)
	isLocalhost := util.IsLoopbackHost(clientIP)

	sessionID, minted := sessionFromRequest(r)

	if cfg.QueueEnabled {
		p.admission.Configure(cfg.MaxConcurrentUsers, cfg.PrioritizeLocalhost)

		decision := p.admission.Join(sessionID, isLocalhost)
		sessionID = decision.SessionID

		if decision.Status != domain.StatusActive {
			p.serveWaitingRoom(w, sessionID)
			return
		}
		p.admission.Heartbeat(sessionID)
	}

	p.forward(w, r, cfg.Port, sessionID, minted)
}

// sessionFromRequest reads the session cookie or mints a fresh one.
func sessionFromRequest(r *http.Request) (sessionID string, minted bool) {
	if c, err := r.Cookie(constants.SessionCookieName); err == nil && c.Value != "" {
		return c.Value, false
	}
	return uuid.NewString(), true
}

func sessionCookie(sessionID string) *http.Cookie {
	return &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   constants.SessionCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// serveWaitingRoom renders the embedded page with the session injected so
// the page's JavaScript can poll its own position.
func (p *Proxy) serveWaitingRoom(w http.ResponseWriter, sessionID string) {
	page, err := waitingRoomFS.ReadFile("waiting_room.html")
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "Waiting room not available"})
		return
	}

	injection := fmt.Sprintf("<script>window.BB_SESSION_ID = %q;</script>", sessionID)
	html := strings.Replace(string(page), "</head>", injection+"</head>", 1)

	http.SetCookie(w, sessionCookie(sessionID))
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeHTML)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

// forward relays the request to the target and streams the response back.
func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, targetPort int, sessionID string, minted bool) {
	targetURL := fmt.Sprintf("http://127.0.0.1:%d%s", targetPort, computePath(r.URL.Path))
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	ctx, cancel := context.WithTimeout(r.Context(), forwardTimeout)
	defer cancel()

	upstream, err := http.NewRequestWithContext(ctx, r.Method, targetURL, r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "Bad Gateway", "details": err.Error()})
		return
	}
	copyRequestHeaders(upstream.Header, r.Header)

	resp, err := p.transport.RoundTrip(upstream)
	if err != nil {
		p.writeUpstreamError(w, err, targetURL)
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w.Header(), resp.Header)
	if minted {
		http.SetCookie(w, sessionCookie(sessionID))
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// computePath strips the /preview prefix; asset paths pass through as-is.
func computePath(path string) string {
	if strings.HasPrefix(path, constants.PreviewPathPrefix) {
		stripped := path[len(constants.PreviewPathPrefix):]
		if stripped == "" {
			return "/"
		}
		return stripped
	}
	return path
}

func (p *Proxy) writeUpstreamError(w http.ResponseWriter, err error, targetURL string) {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		p.log.Warn("Target refused connection", "target", targetURL)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  "Target application not responding",
			"target": targetURL,
		})
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		p.log.Warn("Target timed out", "target", targetURL)
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": "Target application timeout"})
	default:
		p.log.Error("Proxy error", "target", targetURL, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "Bad Gateway", "details": err.Error()})
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// copyRequestHeaders copies everything except Host and Content-Length,
// which the transport regenerates. Accept-Encoding stays out too so the
// transport negotiates gzip itself and hands back a decoded body,
// matching the stripped Content-Encoding on the way out.
func copyRequestHeaders(dst, src http.Header) {
	for key, values := range src {
		switch http.CanonicalHeaderKey(key) {
		case "Host", constants.HeaderContentLength, "Accept-Encoding":
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

// hop headers regenerated by the serving stack.
var excludedResponseHeaders = map[string]struct{}{
	"Content-Encoding":            {},
	constants.HeaderContentLength: {},
	"Transfer-Encoding":           {},
	"Connection":                  {},
}

func copyResponseHeaders(dst, src http.Header) {
	for key, values := range src {
		if _, skip := excludedResponseHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
