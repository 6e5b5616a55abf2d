// Package network detects this machine's LAN addresses and assembles the
// shareable access links for a configured project.
package network

import (
	"fmt"
	"net"
	"strings"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
)

// Links groups every way to reach the project. LAN is a list because a
// machine commonly has several routable addresses.
type Links struct {
	Localhost  string   `json:"localhost"`
	Lan        []string `json:"lan"`
	Ngrok      string   `json:"ngrok,omitempty"`
	Cloudflare string   `json:"cloudflare,omitempty"`
}

// LanIPs enumerates non-loopback IPv4 addresses on up interfaces.
func LanIPs() []string {
	var ips []string
	seen := make(map[string]struct{})

	ifaces, err := net.Interfaces()
	if err != nil {
		return ips
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() {
				continue
			}
			s := ip4.String()
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				ips = append(ips, s)
			}
		}
	}

	// The default-route address may sit on an interface missed above
	// (VPNs, odd routing setups).
	if ip := defaultRouteIP(); ip != "" && !strings.HasPrefix(ip, "127.") {
		if _, dup := seen[ip]; !dup {
			ips = append(ips, ip)
		}
	}

	return ips
}

// defaultRouteIP finds the source address the OS would pick for outbound
// traffic. The UDP dial never sends a packet.
func defaultRouteIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return ""
}

// GenerateLinks assembles access links from the project config, detected
// LAN addresses and current tunnel URLs.
func GenerateLinks(cfg *domain.ProjectConfig, lanIPs []string, ngrokURL, cloudflareURL string) Links {
	links := Links{
		Localhost: fmt.Sprintf("http://localhost:%d", cfg.Port),
		Lan:       []string{},
	}

	if cfg.LanEnabled {
		for _, ip := range lanIPs {
			links.Lan = append(links.Lan, fmt.Sprintf("http://%s:%d", ip, cfg.Port))
		}
	}
	if cfg.NgrokEnabled && ngrokURL != "" {
		links.Ngrok = ngrokURL
	}
	if cfg.CloudflareEnabled && cloudflareURL != "" {
		links.Cloudflare = cloudflareURL
	}

	return links
}
