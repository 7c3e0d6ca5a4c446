// Package metrics exposes the panel's Prometheus collectors.
//
// A *Metrics satisfies bus.Observer, state.Recorder and alert.Recorder, so
// one instance can be handed to every component of a process. All methods
// are safe on a nil receiver, which disables collection.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabrica-cultura/senhas/pkg/storage"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
)

// Config configures the collectors.
type Config struct {
	// Namespace prefixes every metric name (default: "senhas").
	Namespace string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Registry receives the collectors. Default: a fresh registry, so two
	// Metrics never collide.
	Registry *prometheus.Registry
}

// Option configures Metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Metrics holds the panel collectors.
type Metrics struct {
	registry *prometheus.Registry

	mutations     *prometheus.CounterVec
	noopAdjusts   *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	remoteApplied *prometheus.CounterVec
	published     *prometheus.CounterVec
	delivered     *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	alertFailures *prometheus.CounterVec
	contexts      *prometheus.GaugeVec
}

// New registers the collectors and returns them.
func New(opts ...Option) *Metrics {
	cfg := Config{Namespace: "senhas"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(cfg.Registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}, labels)
	}

	return &Metrics{
		registry:      cfg.Registry,
		mutations:     counter("mutations_total", "Persisted and broadcast mutations by aggregate", "kind"),
		noopAdjusts:   counter("noop_adjusts_total", "Adjustments clamped to the current value", "type"),
		fallbacks:     counter("store_fallbacks_total", "Loads that fell back to defaults", "key", "status"),
		remoteApplied: counter("remote_applied_total", "Events from other contexts applied locally", "kind"),
		published:     counter("bus_published_total", "Messages published on the bus", "channel", "type"),
		delivered:     counter("bus_delivered_total", "Messages delivered to endpoints", "channel", "type"),
		alerts:        counter("alerts_played_total", "Alerts played by profile", "profile"),
		alertFailures: counter("alert_failures_total", "Alert playbacks that failed", "profile"),
		contexts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Name:        "live_contexts",
			Help:        "Connected websocket contexts by view",
			ConstLabels: cfg.ConstLabels,
		}, []string{"view"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Mutation counts a persisted and broadcast mutation.
func (m *Metrics) Mutation(kind string) {
	if m != nil {
		m.mutations.WithLabelValues(kind).Inc()
	}
}

// NoopAdjust counts an adjustment that left the counter unchanged.
func (m *Metrics) NoopAdjust(t ticket.Type) {
	if m != nil {
		m.noopAdjusts.WithLabelValues(t.String()).Inc()
	}
}

// Fallback counts a load that returned defaults.
func (m *Metrics) Fallback(key string, status storage.LoadStatus) {
	if m != nil {
		m.fallbacks.WithLabelValues(key, string(status)).Inc()
	}
}

// RemoteApplied counts an event applied from another context.
func (m *Metrics) RemoteApplied(kind string) {
	if m != nil {
		m.remoteApplied.WithLabelValues(kind).Inc()
	}
}

// Published counts a bus publish.
func (m *Metrics) Published(channel, typ string) {
	if m != nil {
		m.published.WithLabelValues(channel, typ).Inc()
	}
}

// Delivered counts a bus delivery.
func (m *Metrics) Delivered(channel, typ string) {
	if m != nil {
		m.delivered.WithLabelValues(channel, typ).Inc()
	}
}

// AlertPlayed counts a successful alert playback.
func (m *Metrics) AlertPlayed(profile int) {
	if m != nil {
		m.alerts.WithLabelValues(profileLabel(profile)).Inc()
	}
}

// AlertFailed counts a failed alert playback.
func (m *Metrics) AlertFailed(profile int) {
	if m != nil {
		m.alertFailures.WithLabelValues(profileLabel(profile)).Inc()
	}
}

// ContextOpened counts a connected context on view.
func (m *Metrics) ContextOpened(view string) {
	if m != nil {
		m.contexts.WithLabelValues(view).Inc()
	}
}

// ContextClosed counts a disconnected context on view.
func (m *Metrics) ContextClosed(view string) {
	if m != nil {
		m.contexts.WithLabelValues(view).Dec()
	}
}

// profileLabel keeps the label set bounded to the catalog.
func profileLabel(profile int) string {
	if profile < 0 || profile > 4 {
		return "invalid"
	}
	return string(rune('0' + profile))
}
