package state

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fabrica-cultura/senhas/internal/clock"
	"github.com/fabrica-cultura/senhas/pkg/bus"
	"github.com/fabrica-cultura/senhas/pkg/storage"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
)

const tracerName = "github.com/fabrica-cultura/senhas/pkg/state"

// Recorder receives manager activity. internal/metrics implements it.
type Recorder interface {
	Mutation(kind string)
	NoopAdjust(t ticket.Type)
	Fallback(key string, status storage.LoadStatus)
	RemoteApplied(kind string)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to stamp ticket mutations.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTracer overrides the tracer resolved from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// Manager holds one context's copy of the configuration and the counters.
type Manager struct {
	store    storage.Store
	endpoint *bus.Endpoint
	clock    clock.Clock
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder

	unsubscribe func()
	closed      atomic.Bool

	mu      sync.Mutex
	config  ticket.Config
	tickets ticket.State

	// notifyMu keeps observer calls in commit order. It is taken while mu
	// is still held and released after the observers return.
	notifyMu        sync.Mutex
	obsMu           sync.RWMutex
	ticketObservers []func(ticket.State)
	configObservers []func(ticket.Config)
}

// New creates a manager, loads both aggregates from store and joins the
// bus through endpoint. A nil endpoint runs the manager without
// cross-context sync. The manager takes ownership of endpoint and closes
// it in Close.
func New(ctx context.Context, store storage.Store, endpoint *bus.Endpoint, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("state: nil store")
	}
	m := &Manager{
		store:    store,
		endpoint: endpoint,
		clock:    clock.Real(),
		logger:   slog.Default().With("component", "state"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}

	m.LoadConfig(ctx)
	m.LoadTickets(ctx)

	if endpoint != nil {
		m.unsubscribe = endpoint.Subscribe(m.handleMessage)
		m.logger = m.logger.With("endpoint", endpoint.ID())
	}
	return m, nil
}

// LoadConfig reads the configuration from the store, falling back to the
// defaults, and makes it the local copy.
func (m *Manager) LoadConfig(ctx context.Context) ticket.Config {
	cfg, status := storage.Load(ctx, m.store, storage.KeyConfig, ticket.DefaultConfig())
	m.noteLoad(storage.KeyConfig, status)

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return cfg
}

// LoadTickets reads the counters from the store, falling back to the
// defaults stamped now, and makes them the local copy.
func (m *Manager) LoadTickets(ctx context.Context) ticket.State {
	fallback := ticket.DefaultState(m.clock.Now().UnixMilli())
	s, status := storage.Load(ctx, m.store, storage.KeyTickets, fallback)
	m.noteLoad(storage.KeyTickets, status)

	m.mu.Lock()
	m.tickets = s
	m.mu.Unlock()
	return s
}

func (m *Manager) noteLoad(key string, status storage.LoadStatus) {
	switch status {
	case storage.StatusFound:
		return
	case storage.StatusAbsent:
		m.logger.Debug("no stored value, using defaults", "key", key)
	default:
		m.logger.Warn("stored value unusable, using defaults", "key", key, "status", string(status))
	}
	if m.recorder != nil {
		m.recorder.Fallback(key, status)
	}
}

// Config returns the local configuration.
func (m *Manager) Config() ticket.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Tickets returns the local counters.
func (m *Manager) Tickets() ticket.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets
}

// NextStamp returns a lastUpdate value strictly greater than the current
// one: the clock in milliseconds, or the current stamp plus one when the
// clock has not moved past it.
func (m *Manager) NextStamp() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextStampLocked()
}

func (m *Manager) nextStampLocked() int64 {
	now := m.clock.Now().UnixMilli()
	if now <= m.tickets.LastUpdate {
		return m.tickets.LastUpdate + 1
	}
	return now
}

// MutateConfig replaces the configuration, persists it and broadcasts it.
func (m *Manager) MutateConfig(ctx context.Context, cfg ticket.Config) (err error) {
	ctx, span := m.tracer.Start(ctx, "state.MutateConfig")
	defer func() { endSpan(span, err) }()

	if m.closed.Load() {
		return ErrClosed
	}

	m.mu.Lock()
	if err := storage.Save(ctx, m.store, storage.KeyConfig, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("state: persist config: %w", err)
	}
	m.config = cfg
	m.publish(EventConfigUpdate, cfg)
	m.notifyMu.Lock()
	m.mu.Unlock()

	m.record(func(r Recorder) { r.Mutation("config") })
	m.notifyConfig(cfg)
	m.notifyMu.Unlock()
	return nil
}

// MutateTickets replaces the counters, persists them and broadcasts them.
// s.LastUpdate must be strictly greater than the current stamp; use
// NextStamp to obtain one.
func (m *Manager) MutateTickets(ctx context.Context, s ticket.State) (err error) {
	ctx, span := m.tracer.Start(ctx, "state.MutateTickets", trace.WithAttributes(
		attribute.Int("ticket.common", s.Common),
		attribute.Int("ticket.priority", s.Priority),
	))
	defer func() { endSpan(span, err) }()

	if m.closed.Load() {
		return ErrClosed
	}

	m.mu.Lock()
	if s.LastUpdate <= m.tickets.LastUpdate {
		m.mu.Unlock()
		return ErrStaleUpdate
	}
	return m.commitTicketsLocked(ctx, s)
}

// Adjust moves counter t one step in direction dir, clamped to the
// configured bounds. When the clamped value equals the current one nothing
// is persisted or broadcast and changed is false.
func (m *Manager) Adjust(ctx context.Context, t ticket.Type, dir Direction) (s ticket.State, changed bool, err error) {
	ctx, span := m.tracer.Start(ctx, "state.Adjust", trace.WithAttributes(
		attribute.String("ticket.type", t.String()),
		attribute.Int("ticket.direction", int(dir)),
	))
	defer func() { endSpan(span, err) }()

	if !t.Valid() {
		return ticket.State{}, false, ErrUnknownType
	}
	if dir != Next && dir != Prev {
		return ticket.State{}, false, ErrInvalidDirection
	}
	if m.closed.Load() {
		return ticket.State{}, false, ErrClosed
	}

	m.mu.Lock()
	current := m.tickets.Get(t)
	min, max := m.config.Bounds(t)
	value := ticket.Clamp(current+int(dir), min, max)
	if value == current {
		s = m.tickets
		m.mu.Unlock()
		span.SetAttributes(attribute.Bool("ticket.changed", false))
		m.record(func(r Recorder) { r.NoopAdjust(t) })
		return s, false, nil
	}

	s = m.tickets.With(t, value, m.nextStampLocked())
	if err := m.commitTicketsLocked(ctx, s); err != nil {
		return ticket.State{}, false, err
	}
	span.SetAttributes(attribute.Bool("ticket.changed", true))
	return s, true, nil
}

// ResetToMin sets counter t to its configured minimum. It always persists
// and broadcasts, even when the counter is already at the minimum.
func (m *Manager) ResetToMin(ctx context.Context, t ticket.Type) (s ticket.State, err error) {
	ctx, span := m.tracer.Start(ctx, "state.ResetToMin", trace.WithAttributes(
		attribute.String("ticket.type", t.String()),
	))
	defer func() { endSpan(span, err) }()

	if !t.Valid() {
		return ticket.State{}, ErrUnknownType
	}
	if m.closed.Load() {
		return ticket.State{}, ErrClosed
	}

	m.mu.Lock()
	min, _ := m.config.Bounds(t)
	s = m.tickets.With(t, min, m.nextStampLocked())
	if err := m.commitTicketsLocked(ctx, s); err != nil {
		return ticket.State{}, err
	}
	return s, nil
}

// ResetAll asks c to confirm ResetPrompt and, when confirmed, resets both
// counters to their defaults with a fresh stamp. A nil or declining
// Confirmer leaves everything untouched.
func (m *Manager) ResetAll(ctx context.Context, c Confirmer) (s ticket.State, reset bool, err error) {
	ctx, span := m.tracer.Start(ctx, "state.ResetAll")
	defer func() { endSpan(span, err) }()

	if c == nil || !c.Confirm(ctx, ResetPrompt) {
		span.SetAttributes(attribute.Bool("state.confirmed", false))
		return m.Tickets(), false, nil
	}
	if m.closed.Load() {
		return ticket.State{}, false, ErrClosed
	}

	m.mu.Lock()
	s = ticket.DefaultState(m.nextStampLocked())
	if err := m.commitTicketsLocked(ctx, s); err != nil {
		return ticket.State{}, false, err
	}
	return s, true, nil
}

// commitTicketsLocked persists s, makes it the local copy, publishes it and
// notifies observers. It must be called with m.mu held and releases it.
func (m *Manager) commitTicketsLocked(ctx context.Context, s ticket.State) error {
	if err := storage.Save(ctx, m.store, storage.KeyTickets, s); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("state: persist tickets: %w", err)
	}
	m.tickets = s
	m.publish(EventTicketUpdate, s)
	m.notifyMu.Lock()
	m.mu.Unlock()

	m.record(func(r Recorder) { r.Mutation("tickets") })
	m.notifyTickets(s)
	m.notifyMu.Unlock()
	return nil
}

// publish broadcasts a full value. Without a usable endpoint the manager
// keeps working on its own; publish failures are only logged.
func (m *Manager) publish(typ string, payload any) {
	if m.endpoint == nil {
		return
	}
	msg, err := bus.NewMessage(typ, payload)
	if err != nil {
		m.logger.Error("encode broadcast", "type", typ, "error", err)
		return
	}
	if err := m.endpoint.Publish(msg); err != nil {
		m.logger.Debug("broadcast skipped", "type", typ, "error", err)
	}
}

// handleMessage applies an event from another context.
func (m *Manager) handleMessage(msg bus.Message) {
	if m.closed.Load() {
		return
	}
	switch msg.Type {
	case EventTicketUpdate:
		var s ticket.State
		if err := msg.Decode(&s); err != nil {
			m.logger.Warn("dropping malformed event", "type", msg.Type, "error", err)
			return
		}
		m.mu.Lock()
		m.tickets = s
		m.notifyMu.Lock()
		m.mu.Unlock()
		m.record(func(r Recorder) { r.RemoteApplied("tickets") })
		m.notifyTickets(s)
		m.notifyMu.Unlock()

	case EventConfigUpdate:
		var cfg ticket.Config
		if err := msg.Decode(&cfg); err != nil {
			m.logger.Warn("dropping malformed event", "type", msg.Type, "error", err)
			return
		}
		m.mu.Lock()
		m.config = cfg
		m.notifyMu.Lock()
		m.mu.Unlock()
		m.record(func(r Recorder) { r.RemoteApplied("config") })
		m.notifyConfig(cfg)
		m.notifyMu.Unlock()

	default:
		m.logger.Debug("ignoring event", "type", msg.Type)
	}
}

// OnTickets registers fn for every counter change, local or remote. fn
// must not mutate the manager. The returned func removes it.
func (m *Manager) OnTickets(fn func(ticket.State)) (remove func()) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.ticketObservers = append(m.ticketObservers, fn)
	idx := len(m.ticketObservers) - 1
	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		m.ticketObservers[idx] = nil
	}
}

// OnConfig registers fn for every configuration change, local or remote.
// fn must not mutate the manager. The returned func removes it.
func (m *Manager) OnConfig(fn func(ticket.Config)) (remove func()) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.configObservers = append(m.configObservers, fn)
	idx := len(m.configObservers) - 1
	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		m.configObservers[idx] = nil
	}
}

func (m *Manager) notifyTickets(s ticket.State) {
	m.obsMu.RLock()
	observers := slices.Clone(m.ticketObservers)
	m.obsMu.RUnlock()
	for _, fn := range observers {
		if fn != nil {
			fn(s)
		}
	}
}

func (m *Manager) notifyConfig(cfg ticket.Config) {
	m.obsMu.RLock()
	observers := slices.Clone(m.configObservers)
	m.obsMu.RUnlock()
	for _, fn := range observers {
		if fn != nil {
			fn(cfg)
		}
	}
}

func (m *Manager) record(fn func(Recorder)) {
	if m.recorder != nil {
		fn(m.recorder)
	}
}

// Close leaves the bus. The store is not closed; it is shared.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.endpoint != nil {
		return m.endpoint.Close()
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
