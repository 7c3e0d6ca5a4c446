package bus

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when publishing on a closed endpoint or hub.
var ErrClosed = errors.New("bus: endpoint closed")

// Observer is notified about bus traffic. Metrics implement it.
type Observer interface {
	Published(channel, typ string)
	Delivered(channel, typ string)
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithObserver registers an observer for published and delivered messages.
func WithObserver(o Observer) HubOption {
	return func(h *Hub) {
		h.observer = o
	}
}

// Hub routes messages between the endpoints of each named channel.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Endpoint]struct{}
	closed   bool

	nextID   atomic.Uint64
	logger   *slog.Logger
	observer Observer
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		channels: make(map[string]map[*Endpoint]struct{}),
		logger:   slog.Default().With("component", "bus"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open joins channel and returns a new endpoint. Opening on a closed hub
// returns an endpoint that is already closed.
func (h *Hub) Open(channel string) *Endpoint {
	e := newEndpoint(h, channel, "ep-"+strconv.FormatUint(h.nextID.Add(1), 10))

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		e.shutdown()
		return e
	}

	members := h.channels[channel]
	if members == nil {
		members = make(map[*Endpoint]struct{})
		h.channels[channel] = members
	}
	members[e] = struct{}{}

	h.logger.Debug("endpoint opened", "channel", channel, "endpoint", e.id)
	return e
}

// Members returns the number of open endpoints on channel.
func (h *Hub) Members(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Close closes every endpoint. Later publishes fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Endpoint
	for _, members := range h.channels {
		for e := range members {
			all = append(all, e)
		}
	}
	h.channels = make(map[string]map[*Endpoint]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, e := range all {
		e.shutdown()
	}
}

// Drain waits until every endpoint has delivered the messages queued so
// far, or until ctx is done.
func (h *Hub) Drain(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if h.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (h *Hub) idle() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, members := range h.channels {
		for e := range members {
			if !e.idle() {
				return false
			}
		}
	}
	return true
}

// fanout enqueues msg on every endpoint of the sender's channel except the
// sender. Enqueueing happens under the read lock, so two publishes from
// the same sender reach each receiver's mailbox in publish order.
func (h *Hub) fanout(sender *Endpoint, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed
	}

	for e := range h.channels[sender.channel] {
		if e == sender {
			continue
		}
		e.enqueue(msg)
	}

	if h.observer != nil {
		h.observer.Published(sender.channel, msg.Type)
	}
	return nil
}

func (h *Hub) leave(e *Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members := h.channels[e.channel]; members != nil {
		delete(members, e)
		if len(members) == 0 {
			delete(h.channels, e.channel)
		}
	}
	h.logger.Debug("endpoint closed", "channel", e.channel, "endpoint", e.id)
}
