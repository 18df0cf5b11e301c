// Package hub pushes network events to browsers over Server-Sent Events.
// Every client belongs to one owner and only sees that owner's events.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"neurosim/internal/auth"
	"neurosim/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keepAliveInterval = 30 * time.Second

// subscriber is one open SSE stream
type subscriber struct {
	id    string
	owner string
	out   chan []byte
}

// Hub manages SSE streams, indexed by owner
type Hub struct {
	mu      sync.RWMutex
	byOwner map[string]map[*subscriber]struct{}
	total   int

	join    chan *subscriber
	leave   chan *subscriber
	inbox   chan service.Event
	stopped chan struct{}
	logger  *zap.Logger
}

// New creates a new Hub
func New(logger *zap.Logger) *Hub {
	return &Hub{
		byOwner: make(map[string]map[*subscriber]struct{}),
		join:    make(chan *subscriber),
		leave:   make(chan *subscriber),
		inbox:   make(chan service.Event, 256),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Attach subscribes the hub to everything published on the bus
func (h *Hub) Attach(bus *service.EventBus) {
	bus.Subscribe(h.inbox)
}

// Run is the hub's event loop. It returns when ctx is done, ending every
// open stream.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case sub := <-h.join:
			h.add(sub)
		case sub := <-h.leave:
			h.remove(sub)
		case event := <-h.inbox:
			h.deliver(event)
		}
	}
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	set, ok := h.byOwner[sub.owner]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.byOwner[sub.owner] = set
	}
	set[sub] = struct{}{}
	h.total++
	total := h.total
	h.mu.Unlock()

	h.logger.Debug("SSE stream opened",
		zap.String("stream", sub.id), zap.String("owner", sub.owner), zap.Int("open", total))
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	set := h.byOwner[sub.owner]
	if _, ok := set[sub]; ok {
		delete(set, sub)
		close(sub.out)
		h.total--
		if len(set) == 0 {
			delete(h.byOwner, sub.owner)
		}
	}
	total := h.total
	h.mu.Unlock()

	h.logger.Debug("SSE stream closed", zap.String("stream", sub.id), zap.Int("open", total))
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	for owner, set := range h.byOwner {
		for sub := range set {
			close(sub.out)
		}
		delete(h.byOwner, owner)
	}
	h.total = 0
	h.mu.Unlock()
	close(h.stopped)
}

func (h *Hub) deliver(event service.Event) {
	h.mu.RLock()
	set := h.byOwner[event.Owner]
	h.mu.RUnlock()
	if len(set) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	frame := []byte("data: " + string(payload) + "\n\n")

	// set is only mutated by Run, which is the caller
	for sub := range set {
		select {
		case sub.out <- frame:
		default:
			h.logger.Warn("SSE stream is slow, skipping event", zap.String("stream", sub.id))
		}
	}
}

// ClientCount returns the number of open streams
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// ServeHTTP streams the authenticated owner's events. The owner must already
// be on the request context.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	if owner == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	rc := http.NewResponseController(w)

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")

	// streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	sub := &subscriber{id: uuid.NewString(), owner: owner, out: make(chan []byte, 64)}
	select {
	case h.join <- sub:
	case <-h.stopped:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.leave <- sub:
		case <-h.stopped:
		}
	}()

	send := func(frame []byte) bool {
		if _, err := w.Write(frame); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send([]byte(": connected\n\n")) {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case frame, open := <-sub.out:
			if !open || !send(frame) {
				return
			}
		case <-keepAlive.C:
			if !send([]byte(": keepalive\n\n")) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
