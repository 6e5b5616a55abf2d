package supervisor

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backendbuddy/backendbuddy/internal/logger"
	"github.com/backendbuddy/backendbuddy/theme"
)

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineSink) PublishLog(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *lineSink) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func newTestSupervisor(sink Sink) *Supervisor {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(sink, logger.NewStyledLogger(quiet, theme.Default()))
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr bool
	}{
		{"plain command", "python main.py", false},
		{"with flags", "npm run dev -- --port 3000", false},
		{"command substitution", "echo $(whoami)", true},
		{"backtick", "echo `id`", true},
		{"pipe", "cat file | grep x", true},
		{"redirect out", "echo hi > out.txt", true},
		{"redirect in", "wc -l < input", true},
		{"chained", "true; rm -rf /", true},
		{"newline", "echo a\necho b", true},
		{"carriage return", "echo a\recho b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommand(tt.command)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSupervisor_StartRejectsBadDirectory(t *testing.T) {
	s := newTestSupervisor(nil)

	result := s.Start("/definitely/not/a/real/dir", "echo hi", "", "")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "Directory does not exist")
}

func TestSupervisor_StartRejectsFileAsDirectory(t *testing.T) {
	s := newTestSupervisor(nil)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	result := s.Start(file, "echo hi", "", "")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "not a directory")
}

func TestSupervisor_StartRejectsDangerousCommand(t *testing.T) {
	s := newTestSupervisor(nil)

	result := s.Start(t.TempDir(), "echo hi; rm -rf /", "", "")
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "forbidden character")
}

func TestSupervisor_StartCapturesLogs(t *testing.T) {
	sink := &lineSink{}
	s := newTestSupervisor(sink)

	result := s.Start(t.TempDir(), "echo hello world", "", "")
	require.True(t, result.Success, result.Message)
	assert.Positive(t, result.PID)

	require.Eventually(t, func() bool {
		for _, line := range sink.snapshot() {
			if line != "" {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	lines := sink.snapshot()
	assert.Contains(t, lines[0], "[Backend] hello world")

	logs := s.RecentLogs(10)
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[len(logs)-1], "hello world")
}

func TestSupervisor_StatusReflectsExit(t *testing.T) {
	s := newTestSupervisor(nil)

	result := s.Start(t.TempDir(), "true", "", "")
	require.True(t, result.Success, result.Message)

	assert.Eventually(t, func() bool {
		return !s.Status().Running
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSupervisor_StartWhileRunningFails(t *testing.T) {
	s := newTestSupervisor(nil)
	defer s.Stop()

	first := s.Start(t.TempDir(), "sleep 30", "", "")
	require.True(t, first.Success, first.Message)

	second := s.Start(t.TempDir(), "sleep 30", "", "")
	assert.False(t, second.Success)
	assert.Equal(t, "Server is already running", second.Message)
}

func TestSupervisor_StopTerminatesProcess(t *testing.T) {
	s := newTestSupervisor(nil)

	result := s.Start(t.TempDir(), "sleep 30", "", "")
	require.True(t, result.Success, result.Message)

	stop := s.Stop()
	assert.True(t, stop.Success)

	assert.Eventually(t, func() bool {
		return !s.Status().Running
	}, 10*time.Second, 100*time.Millisecond)
}

func TestSupervisor_StopWhenIdleIsBenign(t *testing.T) {
	s := newTestSupervisor(nil)

	result := s.Stop()
	assert.False(t, result.Success)
	assert.Equal(t, "No server is running", result.Message)
}

func TestSupervisor_RecentLogsBounded(t *testing.T) {
	s := newTestSupervisor(nil)

	s.mu.Lock()
	for i := 0; i < logRingCapacity+100; i++ {
		s.appendLogLocked("line")
	}
	s.mu.Unlock()

	assert.Len(t, s.RecentLogs(logRingCapacity+500), logRingCapacity)
	assert.Len(t, s.RecentLogs(5), 5)
	assert.Len(t, s.RecentLogs(0), 50)
}
