// Package broadcast fans server log lines, queue snapshots and traffic
// records out to WebSocket subscribers over independent channels.
package broadcast

import (
	"context"
	"errors"

	"github.com/backendbuddy/backendbuddy/internal/core/constants"
	"github.com/backendbuddy/backendbuddy/internal/core/domain"
	"github.com/backendbuddy/backendbuddy/pkg/eventbus"
)

// ErrTooManySubscribers is returned when a channel is at its connection cap.
var ErrTooManySubscribers = errors.New("too many subscribers")

// Hub owns one event bus per broadcast channel. Each channel has an
// independent subscriber cap so a burst of traffic viewers cannot starve
// the log stream.
type Hub struct {
	logs    *eventbus.EventBus[string]
	queue   *eventbus.EventBus[domain.QueueState]
	traffic *eventbus.EventBus[domain.RequestRecord]
	maxSubs int
}

func NewHub() *Hub {
	return &Hub{
		logs:    eventbus.New[string](),
		queue:   eventbus.New[domain.QueueState](),
		traffic: eventbus.New[domain.RequestRecord](),
		maxSubs: constants.MaxSocketConnections,
	}
}

// PublishLog fans a server log line out to log subscribers.
func (h *Hub) PublishLog(line string) {
	h.logs.Publish(line)
}

// PublishQueueState fans a queue snapshot out to queue subscribers.
func (h *Hub) PublishQueueState(state domain.QueueState) {
	h.queue.Publish(state)
}

// PublishTraffic fans a request record out to traffic subscribers.
func (h *Hub) PublishTraffic(record domain.RequestRecord) {
	h.traffic.Publish(record)
}

// SubscribeLogs registers a log subscriber, or ErrTooManySubscribers if the
// channel is at capacity.
func (h *Hub) SubscribeLogs(ctx context.Context) (<-chan string, func(), error) {
	if h.logs.SubscriberCount() >= h.maxSubs {
		return nil, nil, ErrTooManySubscribers
	}
	ch, cancel := h.logs.Subscribe(ctx)
	return ch, cancel, nil
}

// SubscribeQueue registers a queue-snapshot subscriber.
func (h *Hub) SubscribeQueue(ctx context.Context) (<-chan domain.QueueState, func(), error) {
	if h.queue.SubscriberCount() >= h.maxSubs {
		return nil, nil, ErrTooManySubscribers
	}
	ch, cancel := h.queue.Subscribe(ctx)
	return ch, cancel, nil
}

// SubscribeTraffic registers a traffic-record subscriber.
func (h *Hub) SubscribeTraffic(ctx context.Context) (<-chan domain.RequestRecord, func(), error) {
	if h.traffic.SubscriberCount() >= h.maxSubs {
		return nil, nil, ErrTooManySubscribers
	}
	ch, cancel := h.traffic.Subscribe(ctx)
	return ch, cancel, nil
}

// Counts reports live subscriber counts per channel.
func (h *Hub) Counts() map[string]int {
	return map[string]int{
		"logs":    h.logs.SubscriberCount(),
		"queue":   h.queue.SubscriberCount(),
		"traffic": h.traffic.SubscriberCount(),
	}
}

// Shutdown closes every subscriber channel on every bus.
func (h *Hub) Shutdown() {
	h.logs.Shutdown()
	h.queue.Shutdown()
	h.traffic.Shutdown()
}
