package admission

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
)

type statePub struct {
	mu     sync.Mutex
	states []domain.QueueState
}

func (p *statePub) PublishQueueState(state domain.QueueState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
}

func (p *statePub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func assertPositions(t *testing.T, state domain.QueueState) {
	t.Helper()
	for i, w := range state.WaitingUsers {
		assert.Equal(t, i+1, w.Position, "waiting positions must be 1..N in order")
	}
}

func TestController_JoinMintsSession(t *testing.T) {
	c := NewController(nil)

	result := c.Join("", false)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, domain.StatusActive, result.Status)
	assert.Equal(t, "Access granted", result.Message)
}

func TestController_JoinFillsCapThenQueues(t *testing.T) {
	pub := &statePub{}
	c := NewController(pub)
	c.Configure(2, true)

	first := c.Join("s1", false)
	second := c.Join("s2", false)
	third := c.Join("s3", false)

	assert.Equal(t, domain.StatusActive, first.Status)
	assert.Equal(t, domain.StatusActive, second.Status)
	assert.Equal(t, domain.StatusWaiting, third.Status)
	assert.Equal(t, 1, third.Position)
	assert.Equal(t, "Added to queue at position 1", third.Message)

	state := c.State()
	assert.Equal(t, 2, state.ActiveCount)
	assert.Equal(t, 1, state.QueueLength)
	assertPositions(t, state)
	assert.Equal(t, 3, pub.count())
}

func TestController_JoinIsIdempotent(t *testing.T) {
	pub := &statePub{}
	c := NewController(pub)

	c.Join("s1", false)
	c.Join("s2", false)
	before := pub.count()

	again := c.Join("s1", false)
	assert.Equal(t, domain.StatusActive, again.Status)
	assert.Equal(t, "Already active", again.Message)

	queued := c.Join("s2", false)
	assert.Equal(t, domain.StatusWaiting, queued.Status)
	assert.Equal(t, 1, queued.Position)
	assert.Equal(t, "Already in queue", queued.Message)

	// Re-joins are not state changes, no snapshot is published.
	assert.Equal(t, before, pub.count())
}

func TestController_LocalhostBypassesCap(t *testing.T) {
	c := NewController(nil)
	c.Configure(1, true)

	c.Join("remote", false)
	local := c.Join("local", true)

	assert.Equal(t, domain.StatusActive, local.Status)
	assert.Equal(t, "Localhost priority access granted", local.Message)

	state := c.State()
	assert.Equal(t, 2, state.ActiveCount, "localhost admission may exceed the cap")
}

func TestController_LocalhostQueuesWhenPriorityOff(t *testing.T) {
	c := NewController(nil)
	c.Configure(1, false)

	c.Join("remote", false)
	local := c.Join("local", true)

	assert.Equal(t, domain.StatusWaiting, local.Status)
	assert.Equal(t, 1, local.Position)
}

func TestController_LeavePromotesFIFO(t *testing.T) {
	c := NewController(nil)
	c.Configure(1, true)

	c.Join("s1", false)
	c.Join("s2", false)
	c.Join("s3", false)

	result := c.Leave("s1")
	assert.True(t, result.Success)
	assert.Equal(t, "Left active session", result.Message)

	state := c.State()
	require.Equal(t, []string{"s2"}, state.ActiveUsers)
	require.Len(t, state.WaitingUsers, 1)
	assert.Equal(t, "s3", state.WaitingUsers[0].SessionID)
	assertPositions(t, state)
}

func TestController_LeaveFromWaitingRecomputesPositions(t *testing.T) {
	c := NewController(nil)
	c.Configure(1, true)

	c.Join("s1", false)
	c.Join("s2", false)
	c.Join("s3", false)
	c.Join("s4", false)

	result := c.Leave("s2")
	assert.True(t, result.Success)
	assert.Equal(t, "Removed from queue", result.Message)

	state := c.State()
	require.Len(t, state.WaitingUsers, 2)
	assert.Equal(t, "s3", state.WaitingUsers[0].SessionID)
	assert.Equal(t, "s4", state.WaitingUsers[1].SessionID)
	assertPositions(t, state)
}

func TestController_LeaveUnknownSession(t *testing.T) {
	c := NewController(nil)
	result := c.Leave("ghost")
	assert.False(t, result.Success)
	assert.Equal(t, "Session not found", result.Message)
}

func TestController_HeartbeatDoesNotReorder(t *testing.T) {
	c := NewController(nil)
	c.Configure(1, true)

	c.Join("s1", false)
	c.Join("s2", false)
	c.Join("s3", false)

	hb := c.Heartbeat("s3")
	assert.True(t, hb.Success)
	assert.Equal(t, domain.StatusWaiting, hb.Status)
	assert.Equal(t, 2, hb.Position)

	state := c.State()
	assert.Equal(t, "s2", state.WaitingUsers[0].SessionID)
	assert.Equal(t, "s3", state.WaitingUsers[1].SessionID)
}

func TestController_HeartbeatUnknownSession(t *testing.T) {
	c := NewController(nil)
	hb := c.Heartbeat("ghost")
	assert.False(t, hb.Success)
	assert.Equal(t, "Session not found", hb.Message)
}

func TestController_Status(t *testing.T) {
	c := NewController(nil)
	c.Configure(1, true)

	c.Join("s1", false)
	c.Join("s2", false)
	c.Join("s3", false)

	active := c.Status("s1")
	require.NotNil(t, active)
	assert.Equal(t, domain.StatusActive, active.Status)
	assert.Zero(t, active.Position)

	waiting := c.Status("s3")
	require.NotNil(t, waiting)
	assert.Equal(t, domain.StatusWaiting, waiting.Status)
	assert.Equal(t, 2, waiting.Position)
	assert.Equal(t, 60, waiting.EstimatedWait)

	assert.Nil(t, c.Status("ghost"))
}

func TestController_ReapEvictsSilentSessions(t *testing.T) {
	clock := newTestClock()
	pub := &statePub{}
	c := newController(pub, clock.Now)
	c.Configure(1, true)

	c.Join("stale", false)
	c.Join("waiting-stale", false)

	clock.Advance(20 * time.Second)
	c.Join("fresh", false) // queued behind waiting-stale

	clock.Advance(15 * time.Second) // stale entries now past the 30s timeout
	c.Heartbeat("fresh")
	c.Reap()

	state := c.State()
	assert.Equal(t, []string{"fresh"}, state.ActiveUsers, "reap promotes the surviving head")
	assert.Zero(t, state.QueueLength)
}

func TestController_ReapNoChangeNoSnapshot(t *testing.T) {
	clock := newTestClock()
	pub := &statePub{}
	c := newController(pub, clock.Now)

	c.Join("s1", false)
	before := pub.count()

	c.Reap()
	assert.Equal(t, before, pub.count())
}

func TestController_HeartbeatDefersEviction(t *testing.T) {
	clock := newTestClock()
	c := newController(nil, clock.Now)

	c.Join("s1", false)
	clock.Advance(25 * time.Second)
	c.Heartbeat("s1")
	clock.Advance(25 * time.Second)
	c.Reap()

	assert.NotNil(t, c.Status("s1"), "heartbeat within the timeout keeps the session alive")
}

func TestController_ConfigureCoercesCap(t *testing.T) {
	c := NewController(nil)
	c.Configure(0, true)
	assert.Equal(t, 1, c.State().MaxConcurrent)

	c.Configure(-5, true)
	assert.Equal(t, 1, c.State().MaxConcurrent)
}

func TestController_CapReductionDrainsNaturally(t *testing.T) {
	c := NewController(nil)
	c.Configure(3, true)

	c.Join("s1", false)
	c.Join("s2", false)
	c.Join("s3", false)

	c.Configure(1, true)
	state := c.State()
	assert.Equal(t, 3, state.ActiveCount, "cap reduction must not evict admitted sessions")

	// New joins see the new cap.
	late := c.Join("s4", false)
	assert.Equal(t, domain.StatusWaiting, late.Status)

	// No promotion until the active set drains below the new cap.
	c.Leave("s1")
	assert.Equal(t, 2, c.State().ActiveCount)
	assert.Equal(t, 1, c.State().QueueLength)

	c.Leave("s2")
	c.Leave("s3")
	state = c.State()
	assert.Equal(t, []string{"s4"}, state.ActiveUsers)
}

func TestController_SessionNeverInBothSets(t *testing.T) {
	c := NewController(nil)
	c.Configure(1, true)

	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		c.Join(id, false)
	}
	c.Leave("a")
	c.Join("b", false)

	state := c.State()
	seen := make(map[string]int)
	for _, id := range state.ActiveUsers {
		seen[id]++
	}
	for _, w := range state.WaitingUsers {
		seen[w.SessionID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "session %s appears in more than one set", id)
	}
	assertPositions(t, state)
}
