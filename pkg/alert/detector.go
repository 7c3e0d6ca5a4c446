package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fabrica-cultura/senhas/internal/clock"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
)

// DefaultDwell is how long a counter stays highlighted.
const DefaultDwell = 4 * time.Second

// Phase is the detector state.
type Phase int

const (
	// Idle means no counter is highlighted.
	Idle Phase = iota
	// Highlighting means Status.Type is highlighted.
	Highlighting
)

// String returns the phase name.
func (p Phase) String() string {
	if p == Highlighting {
		return "highlighting"
	}
	return "idle"
}

// Status is the detector's current highlight.
type Status struct {
	Phase Phase
	Type  ticket.Type
}

// Recorder receives alert outcomes. Metrics implement it.
type Recorder interface {
	AlertPlayed(profile int)
	AlertFailed(profile int)
}

// Option configures a Detector.
type Option func(*Detector)

// WithClock sets the clock used for the dwell timer.
func WithClock(c clock.Clock) Option {
	return func(d *Detector) {
		d.clock = c
	}
}

// WithDwell overrides DefaultDwell.
func WithDwell(dwell time.Duration) Option {
	return func(d *Detector) {
		d.dwell = dwell
	}
}

// WithLogger sets the logger used for playback failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithRecorder sets the recorder for playback outcomes.
func WithRecorder(r Recorder) Option {
	return func(d *Detector) {
		d.recorder = r
	}
}

// OnChange registers fn to receive every status transition. fn runs
// outside the detector lock.
func OnChange(fn func(Status)) Option {
	return func(d *Detector) {
		d.onChange = fn
	}
}

// Detector decides, per incoming ticket state, whether to alert and which
// counter to highlight. One Detector belongs to one transmission context.
type Detector struct {
	clock    clock.Clock
	dwell    time.Duration
	player   Player
	logger   *slog.Logger
	recorder Recorder
	onChange func(Status)

	mu     sync.Mutex
	config ticket.Config
	status Status
	timer  clock.Timer
	gen    uint64

	// Last observed stamp and last rendered counters. Only the detector
	// reads or writes them.
	lastSeen     int64
	lastCommon   int
	lastPriority int
}

// NewDetector creates a detector that treats initial as already rendered:
// only states newer than initial.LastUpdate trigger an alert.
func NewDetector(initial ticket.State, cfg ticket.Config, player Player, opts ...Option) *Detector {
	d := &Detector{
		clock:        clock.Real(),
		dwell:        DefaultDwell,
		player:       player,
		logger:       slog.Default().With("component", "alert"),
		config:       cfg,
		lastSeen:     initial.LastUpdate,
		lastCommon:   initial.Common,
		lastPriority: initial.Priority,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ObserveTickets feeds a ticket state to the detector. It reports whether
// the state triggered a highlight and an alert.
func (d *Detector) ObserveTickets(ctx context.Context, s ticket.State) bool {
	d.mu.Lock()
	if s.LastUpdate <= d.lastSeen {
		d.mu.Unlock()
		return false
	}

	// Prefer common whenever the diff is ambiguous: both or neither changed.
	changed := ticket.Common
	if s.Common == d.lastCommon && s.Priority != d.lastPriority {
		changed = ticket.Priority
	}
	d.lastSeen = s.LastUpdate
	d.lastCommon = s.Common
	d.lastPriority = s.Priority

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.status = Status{Phase: Highlighting, Type: changed}
	d.timer = d.clock.AfterFunc(d.dwell, func() { d.expire(gen) })

	status := d.status
	profile := d.config.SelectedSound
	d.mu.Unlock()

	d.notify(status)
	d.play(ctx, profile)
	return true
}

// ObserveConfig replaces the held configuration. The highlight is left
// untouched.
func (d *Detector) ObserveConfig(cfg ticket.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = cfg
}

// Status returns the current highlight.
func (d *Detector) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Config returns the configuration the detector currently plays from.
func (d *Detector) Config() ticket.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// LastSeen returns the newest lastUpdate observed.
func (d *Detector) LastSeen() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSeen
}

// Stop cancels a pending return to idle.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// expire returns to idle unless a newer highlight replaced generation gen.
func (d *Detector) expire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.status = Status{Phase: Idle}
	d.timer = nil
	status := d.status
	d.mu.Unlock()

	d.notify(status)
}

func (d *Detector) notify(s Status) {
	if d.onChange != nil {
		d.onChange(s)
	}
}

// play is fire-and-forget: failures are logged and counted, never returned.
// Players must not block.
func (d *Detector) play(ctx context.Context, profile int) {
	if d.player == nil {
		return
	}
	if err := d.player.Play(ctx, profile); err != nil {
		d.logger.Warn("alert playback failed", "profile", profile, "error", err)
		if d.recorder != nil {
			d.recorder.AlertFailed(profile)
		}
		return
	}
	if d.recorder != nil {
		d.recorder.AlertPlayed(profile)
	}
}
