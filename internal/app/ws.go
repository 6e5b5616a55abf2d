package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/backendbuddy/backendbuddy/internal/adapter/broadcast"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The admin dashboard may be served from another local port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsConnection struct {
	ID     int    `json:"id"`
	Type   string `json:"type"`
	Client string `json:"client"`
}

// connTracker backs /api/traffic/connections and the active-connections
// figure in traffic metrics.
type connTracker struct {
	mu    sync.Mutex
	seq   int
	conns map[int]wsConnection
}

func newConnTracker() *connTracker {
	return &connTracker{conns: make(map[int]wsConnection)}
}

func (t *connTracker) add(connType, client string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.seq
	t.seq++
	t.conns[id] = wsConnection{ID: id, Type: connType, Client: client}
	return id
}

func (t *connTracker) remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, id)
}

func (t *connTracker) list() []wsConnection {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]wsConnection, 0, len(t.conns))
	for _, c := range t.conns {
		out = append(out, c)
	}
	return out
}

func (t *connTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// rejectFull closes a freshly-upgraded socket with 1013 when its channel
// is at the subscriber cap.
func rejectFull(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Too many connections")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}

// readUntilClose drains client frames so control messages are processed,
// cancelling the stream when the peer goes away.
func readUntilClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (a *Application) wsLogsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe, err := a.hub.SubscribeLogs(ctx)
	if err == broadcast.ErrTooManySubscribers {
		a.logger.Warn("Log socket rejected: connection limit reached")
		rejectFull(conn)
		return
	}
	defer unsubscribe()
	defer conn.Close()

	id := a.conns.add("logs", r.RemoteAddr)
	defer a.conns.remove(id)

	go readUntilClose(conn, cancel)

	for line := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
}

func (a *Application) wsQueueHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe, err := a.hub.SubscribeQueue(ctx)
	if err == broadcast.ErrTooManySubscribers {
		a.logger.Warn("Queue socket rejected: connection limit reached")
		rejectFull(conn)
		return
	}
	defer unsubscribe()
	defer conn.Close()

	id := a.conns.add("queue", r.RemoteAddr)
	defer a.conns.remove(id)

	go readUntilClose(conn, cancel)

	// First frame is always a full snapshot.
	if err := conn.WriteJSON(a.admission.State()); err != nil {
		return
	}

	for state := range ch {
		if err := conn.WriteJSON(state); err != nil {
			return
		}
	}
}

func (a *Application) wsTrafficHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe, err := a.hub.SubscribeTraffic(ctx)
	if err == broadcast.ErrTooManySubscribers {
		a.logger.Warn("Traffic socket rejected: connection limit reached")
		rejectFull(conn)
		return
	}
	defer unsubscribe()
	defer conn.Close()

	id := a.conns.add("traffic", r.RemoteAddr)
	defer a.conns.remove(id)

	go readUntilClose(conn, cancel)

	for record := range ch {
		if err := conn.WriteJSON(record); err != nil {
			return
		}
	}
}
