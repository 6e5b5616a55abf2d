package constants

const (
	// DefaultAdminPort serves the admin API, admin WebSockets and the
	// reverse proxy on a single listener.
	DefaultAdminPort = 1338

	SessionCookieName   = "bb_session_id"
	SessionCookieMaxAge = 3600 // seconds

	PreviewPathPrefix    = "/preview"
	TrafficAPIPrefix     = "/api/traffic"
	TrafficSocketPrefix  = "/ws/traffic"
	AdminSocketPrefix    = "/ws"
	MaxSocketConnections = 10

	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderXForwardedFor = "X-Forwarded-For"

	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
)

// AssetPaths are proxied verbatim so target apps can serve their static
// files without the /preview prefix.
var AssetPaths = []string{
	"/assets/",
	"/static/",
	"/favicon.ico",
	"/manifest.json",
	"/robots.txt",
	"/sitemap.xml",
}
