// Package admission implements the waiting-room controller: a bounded
// active set and a FIFO waiting list with heartbeat-based eviction.
package admission

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/backendbuddy/backendbuddy/internal/core/domain"
)

const (
	// DefaultHeartbeatTimeout is how long a session may go silent before
	// the reaper evicts it.
	DefaultHeartbeatTimeout = 30 * time.Second

	// secondsPerSlot is the coarse per-position wait estimate.
	secondsPerSlot = 30
)

// Publisher receives a queue snapshot after every state change.
type Publisher interface {
	PublishQueueState(state domain.QueueState)
}

type session struct {
	id            string
	joinedAt      time.Time
	lastHeartbeat time.Time
	isLocalhost   bool
}

// Controller owns every session lifecycle. A single mutex serialises all
// operations; snapshots are published after the lock is released.
type Controller struct {
	mu      sync.Mutex
	active  []*session
	waiting []*session

	maxConcurrent       int
	prioritizeLocalhost bool
	heartbeatTimeout    time.Duration

	pub Publisher
	now func() time.Time
}

func NewController(pub Publisher) *Controller {
	return newController(pub, time.Now)
}

func newController(pub Publisher, now func() time.Time) *Controller {
	return &Controller{
		maxConcurrent:       1,
		prioritizeLocalhost: true,
		heartbeatTimeout:    DefaultHeartbeatTimeout,
		pub:                 pub,
		now:                 now,
	}
}

// Configure updates the concurrency cap and localhost priority. Reducing
// the cap never evicts already-admitted sessions; the excess drains as
// they leave or time out.
func (c *Controller) Configure(maxConcurrent int, prioritizeLocalhost bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	c.maxConcurrent = maxConcurrent
	c.prioritizeLocalhost = prioritizeLocalhost
}

// Join admits the session or appends it to the waiting list. An empty
// session ID mints a fresh UUID.
func (c *Controller) Join(sessionID string, isLocalhost bool) domain.JoinResult {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	c.mu.Lock()

	if c.findActive(sessionID) != nil {
		c.mu.Unlock()
		return domain.JoinResult{
			SessionID: sessionID,
			Status:    domain.StatusActive,
			Message:   "Already active",
		}
	}

	if s := c.findWaiting(sessionID); s != nil {
		result := domain.JoinResult{
			SessionID:   sessionID,
			Status:      domain.StatusWaiting,
			Position:    c.positionOf(sessionID),
			QueueLength: len(c.waiting),
			Message:     "Already in queue",
		}
		c.mu.Unlock()
		return result
	}

	now := c.now()
	entry := &session{
		id:            sessionID,
		joinedAt:      now,
		lastHeartbeat: now,
		isLocalhost:   isLocalhost,
	}

	// Localhost bypasses the cap entirely when priority is on.
	if isLocalhost && c.prioritizeLocalhost {
		c.active = append(c.active, entry)
		state := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(state)
		return domain.JoinResult{
			SessionID: sessionID,
			Status:    domain.StatusActive,
			Message:   "Localhost priority access granted",
		}
	}

	if len(c.active) < c.maxConcurrent {
		c.active = append(c.active, entry)
		state := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(state)
		return domain.JoinResult{
			SessionID: sessionID,
			Status:    domain.StatusActive,
			Message:   "Access granted",
		}
	}

	c.waiting = append(c.waiting, entry)
	position := len(c.waiting)
	state := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(state)
	return domain.JoinResult{
		SessionID:   sessionID,
		Status:      domain.StatusWaiting,
		Position:    position,
		QueueLength: len(state.WaitingUsers),
		Message:     fmt.Sprintf("Added to queue at position %d", position),
	}
}

// Heartbeat refreshes the session's liveness stamp. It never promotes,
// demotes or reorders.
func (c *Controller) Heartbeat(sessionID string) domain.HeartbeatResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if s := c.findActive(sessionID); s != nil {
		s.lastHeartbeat = now
		return domain.HeartbeatResult{Success: true, Status: domain.StatusActive}
	}
	if s := c.findWaiting(sessionID); s != nil {
		s.lastHeartbeat = now
		return domain.HeartbeatResult{
			Success:     true,
			Status:      domain.StatusWaiting,
			Position:    c.positionOf(sessionID),
			QueueLength: len(c.waiting),
		}
	}
	return domain.HeartbeatResult{Success: false, Message: "Session not found"}
}

// Leave removes the session. Freeing an active slot promotes the head of
// the waiting list.
func (c *Controller) Leave(sessionID string) domain.Result {
	c.mu.Lock()

	for i, s := range c.active {
		if s.id == sessionID {
			c.active = append(c.active[:i], c.active[i+1:]...)
			c.promoteLocked()
			state := c.snapshotLocked()
			c.mu.Unlock()
			c.publish(state)
			return domain.Result{Success: true, Message: "Left active session"}
		}
	}

	for i, s := range c.waiting {
		if s.id == sessionID {
			c.waiting = append(c.waiting[:i], c.waiting[i+1:]...)
			state := c.snapshotLocked()
			c.mu.Unlock()
			c.publish(state)
			return domain.Result{Success: true, Message: "Removed from queue"}
		}
	}

	c.mu.Unlock()
	return domain.Result{Success: false, Message: "Session not found"}
}

// Status is a read-only lookup. Returns nil for unknown sessions.
func (c *Controller) Status(sessionID string) *domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.findActive(sessionID) != nil {
		return &domain.SessionStatus{
			SessionID: sessionID,
			Status:    domain.StatusActive,
		}
	}
	if c.findWaiting(sessionID) != nil {
		position := c.positionOf(sessionID)
		return &domain.SessionStatus{
			SessionID:     sessionID,
			Status:        domain.StatusWaiting,
			Position:      position,
			QueueLength:   len(c.waiting),
			EstimatedWait: position * secondsPerSlot,
		}
	}
	return nil
}

// Reap evicts sessions whose heartbeat is older than the timeout, then
// promotes from the waiting list into any freed slots.
func (c *Controller) Reap() {
	c.mu.Lock()

	cutoff := c.now().Add(-c.heartbeatTimeout)
	changed := false

	keep := c.active[:0]
	for _, s := range c.active {
		if s.lastHeartbeat.Before(cutoff) {
			changed = true
			continue
		}
		keep = append(keep, s)
	}
	c.active = keep

	keepWaiting := c.waiting[:0]
	for _, s := range c.waiting {
		if s.lastHeartbeat.Before(cutoff) {
			changed = true
			continue
		}
		keepWaiting = append(keepWaiting, s)
	}
	c.waiting = keepWaiting

	if !changed {
		c.mu.Unlock()
		return
	}

	c.promoteLocked()
	state := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(state)
}

// State returns the full queue snapshot.
func (c *Controller) State() domain.QueueState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IsActive reports whether the session currently holds an active slot.
func (c *Controller) IsActive(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findActive(sessionID) != nil
}

func (c *Controller) findActive(sessionID string) *session {
	for _, s := range c.active {
		if s.id == sessionID {
			return s
		}
	}
	return nil
}

func (c *Controller) findWaiting(sessionID string) *session {
	for _, s := range c.waiting {
		if s.id == sessionID {
			return s
		}
	}
	return nil
}

func (c *Controller) positionOf(sessionID string) int {
	for i, s := range c.waiting {
		if s.id == sessionID {
			return i + 1
		}
	}
	return 0
}

// promoteLocked moves waiting heads into active slots while room remains.
// Strictly FIFO; localhost gets no preference here.
func (c *Controller) promoteLocked() {
	for len(c.active) < c.maxConcurrent && len(c.waiting) > 0 {
		next := c.waiting[0]
		c.waiting = c.waiting[1:]
		c.active = append(c.active, next)
	}
}

func (c *Controller) snapshotLocked() domain.QueueState {
	now := c.now()
	activeIDs := make([]string, len(c.active))
	for i, s := range c.active {
		activeIDs[i] = s.id
	}
	waiting := make([]domain.WaitingUser, len(c.waiting))
	for i, s := range c.waiting {
		waiting[i] = domain.WaitingUser{
			SessionID: s.id,
			Position:  i + 1,
			WaitTime:  int(now.Sub(s.joinedAt).Seconds()),
		}
	}
	return domain.QueueState{
		ActiveCount:   len(c.active),
		MaxConcurrent: c.maxConcurrent,
		ActiveUsers:   activeIDs,
		QueueLength:   len(c.waiting),
		WaitingUsers:  waiting,
	}
}

func (c *Controller) publish(state domain.QueueState) {
	if c.pub != nil {
		c.pub.PublishQueueState(state)
	}
}
