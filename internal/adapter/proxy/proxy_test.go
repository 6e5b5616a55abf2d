package proxy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backendbuddy/backendbuddy/internal/core/constants"
	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/logger"
	"github.com/backendbuddy/backendbuddy/internal/store"
	"github.com/backendbuddy/backendbuddy/theme"
)

type fakeConfig struct {
	cfg *domain.ProjectConfig
	err error
}

func (f *fakeConfig) Get(ctx context.Context) (*domain.ProjectConfig, error) {
	return f.cfg, f.err
}

type fakeAdmission struct {
	configuredCap int
	joinStatus    string
	joined        []string
	heartbeats    []string
}

func (f *fakeAdmission) Configure(maxConcurrent int, prioritizeLocalhost bool) {
	f.configuredCap = maxConcurrent
}

func (f *fakeAdmission) Join(sessionID string, isLocalhost bool) domain.JoinResult {
	f.joined = append(f.joined, sessionID)
	status := f.joinStatus
	if status == "" {
		status = domain.StatusActive
	}
	return domain.JoinResult{SessionID: sessionID, Status: status, Position: 2}
}

func (f *fakeAdmission) Heartbeat(sessionID string) domain.HeartbeatResult {
	f.heartbeats = append(f.heartbeats, sessionID)
	return domain.HeartbeatResult{Success: true, Status: domain.StatusActive}
}

func quietLogger() *logger.StyledLogger {
	return logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)), theme.Default())
}

func targetPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestProxy_NoConfig(t *testing.T) {
	p := New(&fakeConfig{err: store.ErrNotFound}, &fakeAdmission{}, quietLogger())

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "No project configured", body["error"])
}

func TestProxy_WaitingRoomServed(t *testing.T) {
	admission := &fakeAdmission{joinStatus: domain.StatusWaiting}
	cfg := &domain.ProjectConfig{Port: 9999, QueueEnabled: true, MaxConcurrentUsers: 3, PrioritizeLocalhost: true}
	p := New(&fakeConfig{cfg: cfg}, admission, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	req.RemoteAddr = "203.0.113.9:54321"
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, 3, admission.configuredCap, "queue settings refresh on every request")

	body := rec.Body.String()
	require.Len(t, admission.joined, 1)
	assert.Contains(t, body, `window.BB_SESSION_ID = "`+admission.joined[0]+`"`)
	assert.Contains(t, body, "</head>")

	cookie := findCookie(rec.Result().Cookies())
	require.NotNil(t, cookie)
	assert.Equal(t, admission.joined[0], cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, constants.SessionCookieMaxAge, cookie.MaxAge)
}

func TestProxy_ActiveSessionForwarded(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data", r.URL.Path)
		assert.Equal(t, "a=1", r.URL.RawQuery)
		assert.Equal(t, "value", r.Header.Get("X-Custom"))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "identity")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer backend.Close()

	admission := &fakeAdmission{joinStatus: domain.StatusActive}
	cfg := &domain.ProjectConfig{Port: targetPort(t, backend), QueueEnabled: true, MaxConcurrentUsers: 1}
	p := New(&fakeConfig{cfg: cfg}, admission, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/preview/api/data?a=1", nil)
	req.Header.Set("X-Custom", "value")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Encoding"), "hop headers are regenerated, not copied")
	assert.Len(t, admission.heartbeats, 1, "active sessions heartbeat on each request")

	// A minted session comes back as a cookie even on proxied responses.
	require.NotNil(t, findCookie(rec.Result().Cookies()))
}

func TestProxy_ExistingCookieNotReminted(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	cfg := &domain.ProjectConfig{Port: targetPort(t, backend), QueueEnabled: false}
	p := New(&fakeConfig{cfg: cfg}, &fakeAdmission{}, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/preview", nil)
	req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: "existing-session"})
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, findCookie(rec.Result().Cookies()))
}

func TestProxy_QueueDisabledSkipsAdmission(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer backend.Close()

	admission := &fakeAdmission{}
	cfg := &domain.ProjectConfig{Port: targetPort(t, backend), QueueEnabled: false}
	p := New(&fakeConfig{cfg: cfg}, admission, quietLogger())

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, admission.joined)
}

func TestProxy_RedirectPassedThroughVerbatim(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer backend.Close()

	cfg := &domain.ProjectConfig{Port: targetPort(t, backend), QueueEnabled: false}
	p := New(&fakeConfig{cfg: cfg}, &fakeAdmission{}, quietLogger())

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview/account", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestProxy_TargetRefused(t *testing.T) {
	// Grab a port nothing listens on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := &domain.ProjectConfig{Port: port, QueueEnabled: false}
	p := New(&fakeConfig{cfg: cfg}, &fakeAdmission{}, quietLogger())

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Target application not responding", body["error"])
	assert.Contains(t, body["target"], strconv.Itoa(port))
}

func TestComputePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/preview", "/"},
		{"/preview/", "/"},
		{"/preview/app/page", "/app/page"},
		{"/assets/main.js", "/assets/main.js"},
		{"/favicon.ico", "/favicon.ico"},
		{"/", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, computePath(tt.in), "path %s", tt.in)
	}
}

func findCookie(cookies []*http.Cookie) *http.Cookie {
	for _, c := range cookies {
		if c.Name == constants.SessionCookieName {
			return c
		}
	}
	return nil
}
