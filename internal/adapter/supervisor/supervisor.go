// Package supervisor owns the lifecycle of the backend dev server process
// and the optional frontend process, including log capture and tree-wide
// termination.
package supervisor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/internal/logger"
)

const (
	logRingCapacity = 1000
	stopGracePeriod = 5 * time.Second
	restartPause    = time.Second
)

// dangerousPatterns is a conservative guard against operator error in
// shell-interpreted commands, not a security boundary.
var dangerousPatterns = []string{"$(", "`", "|", ">", "<", ";", "\n", "\r"}

// Sink receives every formatted log line alongside the ring.
type Sink interface {
	PublishLog(line string)
}

type child struct {
	cmd    *exec.Cmd
	pid    int
	prefix string
}

// Supervisor manages at most one backend child and one frontend child.
// Handles are mutated only under the mutex; streaming workers run outside
// it and mark the supervisor not-running on stream EOF.
type Supervisor struct {
	mu       sync.Mutex
	backend  *child
	frontend *child
	running  bool
	logRing  []string

	sink Sink
	log  *logger.StyledLogger
}

func New(sink Sink, log *logger.StyledLogger) *Supervisor {
	return &Supervisor{
		logRing: make([]string, 0, logRingCapacity),
		sink:    sink,
		log:     log,
	}
}

// ValidateCommand rejects commands that contain shell control characters.
func ValidateCommand(command string) error {
	for _, pattern := range dangerousPatterns {
		if strings.Contains(command, pattern) {
			return fmt.Errorf("invalid command: contains forbidden character")
		}
	}
	return nil
}

// Start spawns the backend command and, when configured, the frontend
// command. It fails if a process is already running.
func (s *Supervisor) Start(dir, command, frontendDir, frontendCommand string) domain.StartResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return domain.StartResult{Success: false, Message: "Server is already running"}
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return domain.StartResult{Success: false, Message: fmt.Sprintf("Directory does not exist: %s", dir)}
	}
	if err != nil {
		return domain.StartResult{Success: false, Message: fmt.Sprintf("Failed to start server: %v", err)}
	}
	if !info.IsDir() {
		return domain.StartResult{Success: false, Message: fmt.Sprintf("Path is not a directory: %s", dir)}
	}

	if err := ValidateCommand(command); err != nil {
		return domain.StartResult{Success: false, Message: err.Error()}
	}

	backend, err := s.spawn(dir, command, "[Backend] ")
	if err != nil {
		return domain.StartResult{Success: false, Message: fmt.Sprintf("Failed to start server: %v", err)}
	}
	s.backend = backend
	s.running = true
	s.log.Info("Backend process started", "pid", backend.pid, "dir", dir)

	result := domain.StartResult{
		Success: true,
		Message: "Server(s) started successfully",
		PID:     backend.pid,
	}

	if frontendDir != "" && frontendCommand != "" {
		if _, err := os.Stat(frontendDir); err != nil {
			s.appendLogLocked(fmt.Sprintf("[System] [WARNING] Frontend directory not found: %s", frontendDir))
		} else if err := ValidateCommand(frontendCommand); err != nil {
			s.appendLogLocked(fmt.Sprintf("[System] [WARNING] Frontend command rejected: %v", err))
		} else if frontend, err := s.spawn(frontendDir, frontendCommand, "[Frontend] "); err != nil {
			s.appendLogLocked(fmt.Sprintf("[System] [WARNING] Frontend failed to start: %v", err))
		} else {
			s.frontend = frontend
			result.FrontendPID = frontend.pid
			s.log.Info("Frontend process started", "pid", frontend.pid, "dir", frontendDir)
		}
	}

	return result
}

// spawn launches a shell-interpreted command in its own process group with
// merged stdout and stderr, then starts the streaming worker.
func (s *Supervisor) spawn(dir, command, prefix string) (*child, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(os.Environ(),
		"PYTHONUNBUFFERED=1",
		"PYTHONIOENCODING=utf-8",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &child{cmd: cmd, pid: cmd.Process.Pid, prefix: prefix}
	go s.streamLogs(c, stdout)
	return c, nil
}

// streamLogs reads the merged stream line by line until EOF, then marks
// the supervisor not-running and reaps the child.
func (s *Supervisor) streamLogs(c *child, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 256*1024)

	for scanner.Scan() {
		line := strings.ToValidUTF8(scanner.Text(), "�")
		entry := fmt.Sprintf("[%s] %s%s", time.Now().Format("15:04:05"), c.prefix, line)

		s.mu.Lock()
		s.appendLogLocked(entry)
		s.mu.Unlock()
	}

	_ = c.cmd.Wait()

	s.mu.Lock()
	if s.backend == c {
		s.running = false
	}
	s.mu.Unlock()
	s.log.Debug("Log streaming ended", "prefix", strings.TrimSpace(c.prefix), "pid", c.pid)
}

// appendLogLocked pushes a line into the bounded ring and hands it to the
// sink. Caller holds the mutex; the sink never blocks.
func (s *Supervisor) appendLogLocked(entry string) {
	s.logRing = append(s.logRing, entry)
	if len(s.logRing) > logRingCapacity {
		s.logRing = s.logRing[1:]
	}
	if s.sink != nil {
		s.sink.PublishLog(entry)
	}
}

// Stop terminates the full process tree under each child: children first,
// then the parent, escalating to SIGKILL after the grace period. The
// handle is always cleared so the supervisor cannot get stuck.
func (s *Supervisor) Stop() domain.Result {
	s.mu.Lock()
	backend := s.backend
	frontend := s.frontend
	s.backend = nil
	s.frontend = nil
	s.running = false
	s.mu.Unlock()

	if backend == nil {
		return domain.Result{Success: false, Message: "No server is running"}
	}

	if err := terminateTree(backend.pid, stopGracePeriod); err != nil {
		s.log.Warn("Backend stop incomplete", "pid", backend.pid, "error", err)
	}
	if frontend != nil {
		if err := terminateTree(frontend.pid, stopGracePeriod); err != nil {
			s.log.Warn("Frontend stop incomplete", "pid", frontend.pid, "error", err)
		}
	}

	return domain.Result{Success: true, Message: "Server stopped successfully"}
}

// Restart stops everything, pauses for OS port release and starts again.
func (s *Supervisor) Restart(dir, command, frontendDir, frontendCommand string) domain.StartResult {
	s.Stop()
	time.Sleep(restartPause)
	return s.Start(dir, command, frontendDir, frontendCommand)
}

// Status queries the OS rather than trusting the running flag. A dead or
// zombie child clears the handle.
func (s *Supervisor) Status() domain.ServerStatus {
	s.mu.Lock()
	backend := s.backend
	s.mu.Unlock()

	if backend == nil {
		return domain.ServerStatus{Running: false}
	}

	proc, err := process.NewProcess(int32(backend.pid))
	if err == nil {
		if alive, _ := proc.IsRunning(); alive && !isZombie(proc) {
			uptime := 0
			if created, err := proc.CreateTime(); err == nil {
				uptime = int(time.Since(time.UnixMilli(created)).Seconds())
			}
			return domain.ServerStatus{Running: true, PID: backend.pid, Uptime: uptime}
		}
	}

	s.mu.Lock()
	if s.backend == backend {
		s.backend = nil
		s.running = false
	}
	s.mu.Unlock()
	return domain.ServerStatus{Running: false}
}

// RecentLogs returns the last count lines from the ring.
func (s *Supervisor) RecentLogs(count int) []string {
	if count <= 0 {
		count = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if count > len(s.logRing) {
		count = len(s.logRing)
	}
	out := make([]string, count)
	copy(out, s.logRing[len(s.logRing)-count:])
	return out
}

func isZombie(proc *process.Process) bool {
	statuses, err := proc.Status()
	if err != nil {
		return false
	}
	for _, st := range statuses {
		if st == process.Zombie {
			return true
		}
	}
	return false
}

// terminateTree sends SIGTERM to every descendant and the parent, waits
// out the grace period and escalates to SIGKILL for survivors.
func terminateTree(pid int, grace time.Duration) error {
	parent, err := process.NewProcess(int32(pid))
	if err != nil {
		// Already gone.
		return nil
	}

	children, _ := parent.Children()
	for _, c := range children {
		_ = c.Terminate()
	}
	if err := parent.Terminate(); err != nil {
		return err
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if alive, _ := parent.IsRunning(); !alive {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	for _, c := range children {
		_ = c.Kill()
	}
	return parent.Kill()
}
