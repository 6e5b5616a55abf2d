package tunnel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/logger"
)

const (
	ngrokControlAPI  = "http://localhost:4040/api/tunnels"
	ngrokStartupWait = 2 * time.Second
	ngrokStopGrace   = 5 * time.Second
)

type ngrokTunnelList struct {
	Tunnels []struct {
		PublicURL string `json:"public_url"`
	} `json:"tunnels"`
}

// NgrokManager runs the ngrok agent and discovers its public URL through
// the agent's local control API.
type NgrokManager struct {
	mu     sync.Mutex
	handle *handle
	url    string

	resolvePort PortResolver
	client      *http.Client
	log         *logger.StyledLogger

	// test seams
	startupWait time.Duration
	controlAPI  string
}

func NewNgrokManager(resolvePort PortResolver, log *logger.StyledLogger) *NgrokManager {
	return &NgrokManager{
		resolvePort: resolvePort,
		client:      &http.Client{Timeout: 5 * time.Second},
		log:         log,
		startupWait: ngrokStartupWait,
		controlAPI:  ngrokControlAPI,
	}
}

// Start launches the agent for the requested port, waits for it to come up
// and extracts the first tunnel's public URL from the control API.
func (m *NgrokManager) Start(requestedPort int) domain.TunnelResult {
	m.mu.Lock()

	if m.handle != nil {
		if m.handle.alive() && m.url != "" {
			url := m.url
			m.mu.Unlock()
			return domain.TunnelResult{Success: true, URL: url, Message: "ngrok already running"}
		}
		m.handle = nil
		m.url = ""
	}

	targetPort := m.resolvePort(requestedPort)
	m.log.InfoHighlight("Starting ngrok tunnel to port", strconv.Itoa(targetPort))

	cmd := exec.Command("ngrok", "http", strconv.Itoa(targetPort))
	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		if errors.Is(err, exec.ErrNotFound) {
			return domain.TunnelResult{Success: false, Message: "ngrok not found. Please ensure it's installed globally."}
		}
		return domain.TunnelResult{Success: false, Message: fmt.Sprintf("Failed to start ngrok: %v", err)}
	}
	m.handle = newHandle(cmd)
	m.mu.Unlock()

	time.Sleep(m.startupWait)

	url, err := m.fetchPublicURL()
	if err != nil {
		m.log.Warn("ngrok URL discovery failed", "error", err)
		return domain.TunnelResult{Success: false, Message: "Failed to retrieve ngrok URL. Is ngrok running?"}
	}

	m.mu.Lock()
	m.url = url
	m.mu.Unlock()

	m.log.InfoHighlight("ngrok tunnel established", url)
	return domain.TunnelResult{Success: true, URL: url, Message: "ngrok started successfully"}
}

func (m *NgrokManager) fetchPublicURL() (string, error) {
	resp, err := m.client.Get(m.controlAPI)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("control API returned status %d", resp.StatusCode)
	}

	var list ngrokTunnelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return "", err
	}
	if len(list.Tunnels) == 0 || list.Tunnels[0].PublicURL == "" {
		return "", errors.New("no tunnels in control API response")
	}
	return list.Tunnels[0].PublicURL, nil
}

// Stop terminates the agent and clears the handle and URL.
func (m *NgrokManager) Stop() domain.Result {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.url = ""
	m.mu.Unlock()

	if h == nil {
		return domain.Result{Success: false, Message: "ngrok is not running"}
	}

	h.terminate(ngrokStopGrace)
	m.log.Info("ngrok stopped")
	return domain.Result{Success: true, Message: "ngrok stopped successfully"}
}

// Status reflects the liveness of the process handle. A dead handle is
// cleared on observation.
func (m *NgrokManager) Status() domain.TunnelStatus {
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
func (m *NgrokManager) EnsureRunning(requestedPort int) {
	if m.Status().Running {
		return
	}
	m.log.Info("Re-establishing ngrok tunnel after restart")
	m.Start(requestedPort)
}
