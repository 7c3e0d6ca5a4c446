// Package ticket defines the two aggregates shared by every panel context:
// the counter configuration and the counter state.
//
// Tickets are not discrete items. There are exactly two scalar counters,
// one per Type, and a millisecond stamp that changes on every mutation.
package ticket

import (
	"fmt"
	"strings"
)

// Type identifies one of the two counters.
type Type string

const (
	// Common is the regular queue counter.
	Common Type = "common"

	// Priority is the priority queue counter.
	Priority Type = "priority"
)

// Types lists every counter type in display order.
var Types = []Type{Common, Priority}

// ParseType converts a string to a Type.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case Common:
		return Common, nil
	case Priority:
		return Priority, nil
	}
	return "", fmt.Errorf("ticket: unknown type %q", s)
}

// Valid reports whether t is one of the known counter types.
func (t Type) Valid() bool {
	return t == Common || t == Priority
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// WelcomeTemplate is the welcome text shown on first run.
const WelcomeTemplate = `Seja bem-vindo(a) à
Fábrica de Cultura do Capão Redondo!

Por favor, preencha o formulário entregue e aguarde um momento.
Em breve, chamaremos o número da sua senha para realizar sua inscrição.`

// Config is the settings aggregate. It is replaced wholesale on every change.
//
// Min <= Max is expected but not enforced here; see Clamp.
type Config struct {
	WelcomeText   string  `json:"welcomeText"`
	CommonMin     int     `json:"commonMin"`
	CommonMax     int     `json:"commonMax"`
	PriorityMin   int     `json:"priorityMin"`
	PriorityMax   int     `json:"priorityMax"`
	LogoURL       *string `json:"logoUrl"`
	SelectedSound int     `json:"selectedSound"`
}

// DefaultConfig returns the compiled-in configuration.
func DefaultConfig() Config {
	return Config{
		WelcomeText:   WelcomeTemplate,
		CommonMin:     1,
		CommonMax:     999,
		PriorityMin:   1,
		PriorityMax:   999,
		LogoURL:       nil,
		SelectedSound: 0,
	}
}

// Bounds returns the configured minimum and maximum for t.
func (c Config) Bounds(t Type) (min, max int) {
	if t == Priority {
		return c.PriorityMin, c.PriorityMax
	}
	return c.CommonMin, c.CommonMax
}

// Logo returns the logo reference or "" when none is set.
func (c Config) Logo() string {
	if c.LogoURL == nil {
		return ""
	}
	return *c.LogoURL
}

// WithLogo returns a copy of c referencing the given logo. An empty ref
// clears the logo.
func (c Config) WithLogo(ref string) Config {
	if ref == "" {
		c.LogoURL = nil
		return c
	}
	c.LogoURL = &ref
	return c
}

// Equal reports whether two configurations hold the same values.
func (c Config) Equal(o Config) bool {
	return c.WelcomeText == o.WelcomeText &&
		c.CommonMin == o.CommonMin && c.CommonMax == o.CommonMax &&
		c.PriorityMin == o.PriorityMin && c.PriorityMax == o.PriorityMax &&
		c.Logo() == o.Logo() && (c.LogoURL == nil) == (o.LogoURL == nil) &&
		c.SelectedSound == o.SelectedSound
}

// State is the counter aggregate.
//
// LastUpdate is a Unix millisecond stamp. It is the only signal other
// contexts use to detect a change, so two distinct mutations must never
// carry the same value.
type State struct {
	Common     int   `json:"common"`
	Priority   int   `json:"priority"`
	LastUpdate int64 `json:"lastUpdate"`
}

// DefaultState returns the compiled-in counters stamped with lastUpdate.
func DefaultState(lastUpdate int64) State {
	return State{Common: 1, Priority: 1, LastUpdate: lastUpdate}
}

// Get returns the counter value for t.
func (s State) Get(t Type) int {
	if t == Priority {
		return s.Priority
	}
	return s.Common
}

// With returns a copy of s with counter t set to v and the given stamp.
func (s State) With(t Type, v int, lastUpdate int64) State {
	if t == Priority {
		s.Priority = v
	} else {
		s.Common = v
	}
	s.LastUpdate = lastUpdate
	return s
}

// Clamp bounds v to [min, max] the same way the operator panel always has:
// min(max, max(min, v)). With min > max the result is max, which makes
// adjustments a permanent no-op rather than an error.
func Clamp(v, min, max int) int {
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}
