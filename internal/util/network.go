package util

import (
	"net"
	"net/http"
	"strings"

	"github.com/backendbuddy/backendbuddy/internal/core/constants"
)

var loopbackHosts = map[string]struct{}{
	"127.0.0.1": {},
	"localhost": {},
	"::1":       {},
}

// IsLoopbackHost reports whether a bare host (no port) names this machine's
// loopback interface.
func IsLoopbackHost(host string) bool {
	_, ok := loopbackHosts[host]
	return ok
}

// HostWithoutPort strips a :port suffix from a Host header value.
func HostWithoutPort(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

// ResolveClientIP returns the originating client address. Tunnel agents
// terminate upstream and speak to us from loopback, so the first element
// of X-Forwarded-For wins over the socket peer when present.
func ResolveClientIP(r *http.Request) string {
	if forwarded := r.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
