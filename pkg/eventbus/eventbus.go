// Package eventbus provides a lock-free pub/sub primitive used by the
// broadcast hub to fan events out to WebSocket subscribers without
// blocking producers.
package eventbus

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// EventBus delivers events to any number of subscribers. Publishing never
// blocks: a subscriber whose buffer is full simply misses the event, and
// subscribers that go quiet are purged by the cleanup loop.
type EventBus[T any] struct {
	subscribers   *xsync.Map[string, *subscriber[T]]
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	subscriberSeq atomic.Uint64
	isShutdown    atomic.Bool
	bufferSize    int
}

type subscriber[T any] struct {
	id         string
	ch         chan T
	lastActive atomic.Int64
	dropped    atomic.Uint64
	isActive   atomic.Bool
}

// Config controls per-subscriber buffering and stale-subscriber cleanup.
type Config struct {
	BufferSize      int
	CleanupPeriod   time.Duration
	InactiveTimeout time.Duration
}

var DefaultConfig = Config{
	BufferSize:      100,
	CleanupPeriod:   5 * time.Minute,
	InactiveTimeout: 10 * time.Minute,
}

func New[T any]() *EventBus[T] {
	return NewWithConfig[T](DefaultConfig)
}

func NewWithConfig[T any](cfg Config) *EventBus[T] {
	eb := &EventBus[T]{
		subscribers: xsync.NewMap[string, *subscriber[T]](),
		bufferSize:  cfg.BufferSize,
		stopCleanup: make(chan struct{}),
	}

	if cfg.CleanupPeriod > 0 {
		eb.cleanupTicker = time.NewTicker(cfg.CleanupPeriod)
		go eb.cleanupLoop(cfg.InactiveTimeout)
	}

	return eb
}

// Subscribe returns a receive channel plus a cleanup function. The channel
// is closed when the subscriber is removed, the context is cancelled or the
// bus shuts down.
func (eb *EventBus[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	if eb.isShutdown.Load() {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	id := "sub_" + strconv.FormatUint(eb.subscriberSeq.Add(1), 10)
	sub := &subscriber[T]{
		id: id,
		ch: make(chan T, eb.bufferSize),
	}
	sub.lastActive.Store(time.Now().UnixNano())
	sub.isActive.Store(true)

	eb.subscribers.Store(id, sub)

	go func() {
		<-ctx.Done()
		eb.unsubscribe(id)
	}()

	return sub.ch, func() { eb.unsubscribe(id) }
}

// Publish sends an event to every active subscriber and reports how many
// received it. Slow subscribers drop the event rather than stall the caller.
func (eb *EventBus[T]) Publish(event T) int {
	if eb.isShutdown.Load() {
		return 0
	}

	delivered := 0
	now := time.Now().UnixNano()

	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		if !sub.isActive.Load() {
			return true
		}
		select {
		case sub.ch <- event:
			sub.lastActive.Store(now)
			delivered++
		default:
			sub.dropped.Add(1)
		}
		return true
	})

	return delivered
}

// SubscriberCount returns the number of active subscribers.
func (eb *EventBus[T]) SubscriberCount() int {
	if eb.isShutdown.Load() {
		return 0
	}
	count := 0
	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		if sub.isActive.Load() {
			count++
		}
		return true
	})
	return count
}

// Shutdown closes all subscriber channels and stops the cleanup loop.
func (eb *EventBus[T]) Shutdown() {
	if !eb.isShutdown.CompareAndSwap(false, true) {
		return
	}

	if eb.cleanupTicker != nil {
		eb.cleanupTicker.Stop()
		close(eb.stopCleanup)
	}

	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		sub.isActive.Store(false)
		close(sub.ch)
		return true
	})
	eb.subscribers.Clear()
}

func (eb *EventBus[T]) unsubscribe(id string) {
	if sub, exists := eb.subscribers.LoadAndDelete(id); exists {
		sub.isActive.Store(false)
		close(sub.ch)
	}
}

func (eb *EventBus[T]) cleanupLoop(inactiveTimeout time.Duration) {
	for {
		select {
		case <-eb.stopCleanup:
			return
		case <-eb.cleanupTicker.C:
			cutoff := time.Now().Add(-inactiveTimeout).UnixNano()
			var stale []string
			eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
				if !sub.isActive.Load() || sub.lastActive.Load() < cutoff {
					stale = append(stale, id)
				}
				return true
			})
			for _, id := range stale {
				eb.unsubscribe(id)
			}
		}
	}
}
