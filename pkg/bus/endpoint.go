package bus

import (
	"sync"
)

// Endpoint is one context's attachment to a channel.
type Endpoint struct {
	hub     *Hub
	channel string
	id      string

	mu       sync.Mutex
	handlers map[uint64]Handler
	nextSub  uint64
	pending  []Message
	busy     bool
	closed   bool

	wake chan struct{}
	done chan struct{}
}

func newEndpoint(h *Hub, channel, id string) *Endpoint {
	e := &Endpoint{
		hub:      h,
		channel:  channel,
		id:       id,
		handlers: make(map[uint64]Handler),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go e.deliverLoop()
	return e
}

// ID returns the endpoint identifier, unique within its hub.
func (e *Endpoint) ID() string {
	return e.id
}

// Channel returns the channel name.
func (e *Endpoint) Channel() string {
	return e.channel
}

// Publish sends msg to every other endpoint on the channel.
func (e *Endpoint) Publish(msg Message) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return e.hub.fanout(e, msg)
}

// Subscribe registers h for every message delivered from now on and
// returns a func that removes it. Subscribing on a closed endpoint is a
// no-op.
func (e *Endpoint) Subscribe(h Handler) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return func() {}
	}

	id := e.nextSub
	e.nextSub++
	e.handlers[id] = h

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

// Close leaves the channel and drops every handler. Messages still queued
// are discarded. Close is idempotent.
func (e *Endpoint) Close() error {
	e.hub.leave(e)
	e.shutdown()
	return nil
}

// Done is closed once the endpoint has shut down.
func (e *Endpoint) Done() <-chan struct{} {
	return e.done
}

func (e *Endpoint) shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.handlers = nil
	e.pending = nil
	close(e.done)
}

// enqueue appends to the mailbox without blocking the publisher.
func (e *Endpoint) enqueue(msg Message) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.pending = append(e.pending, msg)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Endpoint) deliverLoop() {
	for {
		select {
		case <-e.done:
			return
		case <-e.wake:
		}

		for {
			e.mu.Lock()
			if e.closed || len(e.pending) == 0 {
				e.mu.Unlock()
				break
			}
			msg := e.pending[0]
			e.pending = e.pending[1:]
			e.busy = true
			handlers := e.sortedHandlers()
			e.mu.Unlock()

			for _, h := range handlers {
				h(msg)
			}
			if obs := e.hub.observer; obs != nil {
				obs.Delivered(e.channel, msg.Type)
			}

			e.mu.Lock()
			e.busy = false
			e.mu.Unlock()
		}
	}
}

// idle reports whether nothing is queued or being delivered.
func (e *Endpoint) idle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed || (!e.busy && len(e.pending) == 0)
}

// sortedHandlers returns handlers in subscription order. Callers hold mu.
func (e *Endpoint) sortedHandlers() []Handler {
	out := make([]Handler, 0, len(e.handlers))
	for id := uint64(0); id < e.nextSub; id++ {
		if h, ok := e.handlers[id]; ok {
			out = append(out, h)
		}
	}
	return out
}
