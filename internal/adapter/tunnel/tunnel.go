// Package tunnel manages the ngrok and cloudflared agents. The two agents
// have independent lifecycles: restarting the dev server never stops a
// tunnel.
package tunnel

import (
	"os/exec"
	"syscall"
	"time"
)

// PortResolver maps a requested target port onto the port the agent should
// actually expose. When the waiting room is enabled the admin port is used
// so tunnel traffic stays gated by the proxy.
type PortResolver func(requestedPort int) int

// ResolveTargetPort derives the port an agent should expose.
func ResolveTargetPort(queueEnabled bool, adminPort, requestedPort int) int {
	if queueEnabled {
		return adminPort
	}
	return requestedPort
}

// handle tracks one spawned agent process. exited is closed by the reaper
// goroutine when the process ends.
type handle struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

func newHandle(cmd *exec.Cmd) *handle {
	h := &handle{cmd: cmd, exited: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(h.exited)
	}()
	return h
}

func (h *handle) alive() bool {
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// terminate signals the agent, waits out the grace period and escalates to
// SIGKILL if it lingers.
func (h *handle) terminate(grace time.Duration) {
	if h.cmd.Process == nil {
		return
	}
	_ = h.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-h.exited:
	case <-time.After(grace):
		_ = h.cmd.Process.Kill()
		<-h.exited
	}
}
