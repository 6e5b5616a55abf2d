package tunnel

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/logger"
)

const (
	cloudflaredURLTimeout = 10 * time.Second
	cloudflaredURLPoll    = 500 * time.Millisecond
	cloudflaredStopGrace  = 2 * time.Second
)

// cloudflaredURLPattern matches the ephemeral public hostname the agent
// prints once the tunnel is up.
var cloudflaredURLPattern = regexp.MustCompile(`https://[a-zA-Z0-9-]+\.trycloudflare\.com`)

// CloudflaredManager runs the cloudflared agent and scrapes its merged
// output for the assigned trycloudflare URL.
type CloudflaredManager struct {
	mu     sync.Mutex
	handle *handle
	url    string

	resolvePort PortResolver
	log         *logger.StyledLogger

	// test seams
	urlTimeout time.Duration
	urlPoll    time.Duration
}

func NewCloudflaredManager(resolvePort PortResolver, log *logger.StyledLogger) *CloudflaredManager {
	return &CloudflaredManager{
		resolvePort: resolvePort,
		log:         log,
		urlTimeout:  cloudflaredURLTimeout,
		urlPoll:     cloudflaredURLPoll,
	}
}

// Start launches the agent and waits for its public URL to appear in the
// output stream.
func (m *CloudflaredManager) Start(requestedPort int) domain.TunnelResult {
	m.mu.Lock()

	if m.handle != nil {
		if m.handle.alive() && m.url != "" {
			url := m.url
			m.mu.Unlock()
			return domain.TunnelResult{Success: true, URL: url, Message: "cloudflared already running"}
		}
		h := m.handle
		m.handle = nil
		m.url = ""
		m.mu.Unlock()
		h.terminate(cloudflaredStopGrace)
		m.mu.Lock()
	}

	if _, err := exec.LookPath("cloudflared"); err != nil {
		m.mu.Unlock()
		return domain.TunnelResult{Success: false, Message: "cloudflared not found in PATH"}
	}

	targetPort := m.resolvePort(requestedPort)
	m.log.InfoHighlight("Starting cloudflared tunnel to port", fmt.Sprintf("%d", targetPort))

	cmd := exec.Command("cloudflared", "tunnel", "--url", fmt.Sprintf("http://127.0.0.1:%d", targetPort))
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		m.mu.Unlock()
		return domain.TunnelResult{Success: false, Message: err.Error()}
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		return domain.TunnelResult{Success: false, Message: err.Error()}
	}
	m.handle = newHandle(cmd)
	m.mu.Unlock()

	go m.scanForURL(stdout)

	deadline := time.Now().Add(m.urlTimeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		url := m.url
		m.mu.Unlock()
		if url != "" {
			return domain.TunnelResult{
				Success: true,
				URL:     url,
				Message: fmt.Sprintf("Cloudflare tunnel started: %s", url),
			}
		}
		time.Sleep(m.urlPoll)
	}

	return domain.TunnelResult{Success: false, Message: "Cloudflare started but URL not found (check logs)"}
}

// scanForURL keeps reading until EOF so the agent's pipe never fills,
// recording the first matching URL it sees.
func (m *CloudflaredManager) scanForURL(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if match := cloudflaredURLPattern.FindString(scanner.Text()); match != "" {
			m.mu.Lock()
			if m.url == "" {
				m.url = match
			}
			m.mu.Unlock()
			m.log.InfoHighlight("Cloudflare URL found", match)
		}
	}
}

// Stop terminates the agent and clears the handle and URL.
func (m *CloudflaredManager) Stop() domain.Result {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.url = ""
	m.mu.Unlock()

	if h == nil {
		return domain.Result{Success: false, Message: "cloudflared is not running"}
	}

	h.terminate(cloudflaredStopGrace)
	m.log.Info("cloudflared stopped")
	return domain.Result{Success: true, Message: "cloudflared stopped successfully"}
}

// Status reflects the liveness of the process handle.
func (m *CloudflaredManager) Status() domain.TunnelStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return domain.TunnelStatus{Running: false}
	}
	if !m.handle.alive() {
		m.handle = nil
		m.url = ""
		return domain.TunnelStatus{Running: false}
	}
	return domain.TunnelStatus{Running: true, URL: m.url}
}

// EnsureRunning restarts the tunnel if its agent has died.
func (m *CloudflaredManager) EnsureRunning(requestedPort int) {
	if m.Status().Running {
		return
	}
	m.log.Info("Re-establishing cloudflared tunnel after restart")
	m.Start(requestedPort)
}
