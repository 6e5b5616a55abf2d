package network

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
)

func TestLanIPs_NoLoopbackNoDuplicates(t *testing.T) {
	ips := LanIPs()

	seen := make(map[string]struct{})
	for _, ip := range ips {
		assert.False(t, strings.HasPrefix(ip, "127."), "loopback address leaked: %s", ip)
		_, dup := seen[ip]
		assert.False(t, dup, "duplicate address: %s", ip)
		seen[ip] = struct{}{}
	}
}

func TestGenerateLinks(t *testing.T) {
	cfg := &domain.ProjectConfig{
		Port:              8000,
		LanEnabled:        true,
		NgrokEnabled:      true,
		CloudflareEnabled: false,
	}

	links := GenerateLinks(cfg, []string{"192.168.1.10", "10.0.0.4"}, "https://abc.ngrok-free.app", "https://x.trycloudflare.com")

	assert.Equal(t, "http://localhost:8000", links.Localhost)
	assert.Equal(t, []string{"http://192.168.1.10:8000", "http://10.0.0.4:8000"}, links.Lan)
	assert.Equal(t, "https://abc.ngrok-free.app", links.Ngrok)
	assert.Empty(t, links.Cloudflare, "disabled tunnel contributes no link")
}

func TestGenerateLinks_LanDisabled(t *testing.T) {
	cfg := &domain.ProjectConfig{Port: 3000, LanEnabled: false}

	links := GenerateLinks(cfg, []string{"192.168.1.10"}, "", "")

	assert.Empty(t, links.Lan)
	assert.Equal(t, "http://localhost:3000", links.Localhost)
}

func TestGenerateLinks_TunnelEnabledButNoURL(t *testing.T) {
	cfg := &domain.ProjectConfig{Port: 3000, NgrokEnabled: true}

	links := GenerateLinks(cfg, nil, "", "")
	assert.Empty(t, links.Ngrok, "enabled tunnel without a URL yields no link")
}
