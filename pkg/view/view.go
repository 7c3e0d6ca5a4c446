// Package view maps navigation indicators to the three panel views.
package view

import (
	"net/url"
	"slices"
	"strings"
	"sync"
)

// View is one of the panel screens.
type View string

const (
	Config   View = "config"
	Command  View = "command"
	Transmit View = "transmit"
)

// Default is the view shown when no valid indicator was given.
const Default = Config

// All lists the views in menu order.
var All = []View{Config, Command, Transmit}

// Parse extracts a view from a navigation indicator. It accepts "#/transmit",
// "/transmit" and "transmit". ok is false for anything else.
func Parse(indicator string) (v View, ok bool) {
	s := strings.TrimSpace(indicator)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(s, "/")
	switch View(s) {
	case Config, Command, Transmit:
		return View(s), true
	}
	return "", false
}

// Fragment returns the hash fragment that selects v, e.g. "#/transmit".
func (v View) Fragment() string {
	return "#/" + string(v)
}

// TransmitLink builds the link opened on the public display: origin and
// path of the current page followed by the transmit fragment. Any query or
// fragment in path is dropped.
func TransmitLink(origin, path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(path, "/") + Transmit.Fragment()
}

// Selector holds the active view of one context.
type Selector struct {
	mu       sync.Mutex
	current  View
	onChange []func(View)
}

// NewSelector returns a selector showing the default view, or the view
// named by initial when it is valid.
func NewSelector(initial string) *Selector {
	s := &Selector{current: Default}
	if v, ok := Parse(initial); ok {
		s.current = v
	}
	return s
}

// Current returns the active view.
func (s *Selector) Current() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Navigate switches to the view named by indicator. Unknown indicators are
// ignored. It reports whether the active view changed.
func (s *Selector) Navigate(indicator string) bool {
	v, ok := Parse(indicator)
	if !ok {
		return false
	}
	s.mu.Lock()
	if v == s.current {
		s.mu.Unlock()
		return false
	}
	s.current = v
	handlers := slices.Clone(s.onChange)
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(v)
	}
	return true
}

// OnChange registers fn to run after every view switch.
func (s *Selector) OnChange(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}
