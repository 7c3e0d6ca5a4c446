package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fabrica-cultura/senhas/internal/errors"
	"github.com/fabrica-cultura/senhas/pkg/alert"
	"github.com/fabrica-cultura/senhas/pkg/logo"
	"github.com/fabrica-cultura/senhas/pkg/state"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
	"github.com/fabrica-cultura/senhas/pkg/view"
)

// Snapshot is the body of GET /api/state.
type Snapshot struct {
	Config  ticket.Config `json:"config"`
	Tickets ticket.State  `json:"tickets"`
}

// AdjustResult is the body returned by the next and prev endpoints.
type AdjustResult struct {
	Tickets ticket.State `json:"tickets"`
	Changed bool         `json:"changed"`
}

// AlertList is the body of GET /api/alerts.
type AlertList struct {
	Selected int             `json:"selected"`
	Profiles []alert.Profile `json:"profiles"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Snapshot{
		Config:  s.operator.Config(),
		Tickets: s.operator.Tickets(),
	})
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg ticket.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, r, errors.New("E144").WithDetail(err.Error()).Wrap(err))
		return
	}
	if err := validateConfig(cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.operator.MutateConfig(r.Context(), cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// validateConfig rejects alert profiles outside the catalog. Bounds are
// taken as given.
func validateConfig(cfg ticket.Config) error {
	if !alert.ValidProfile(cfg.SelectedSound) {
		return errors.New("E143").WithDetail("selectedSound must be between 0 and " +
			strconv.Itoa(alert.ProfileCount-1) + ".")
	}
	return nil
}

func ticketType(r *http.Request) (ticket.Type, error) {
	raw := chi.URLParam(r, "type")
	t, err := ticket.ParseType(raw)
	if err != nil {
		return "", errors.New("E140").WithDetail("Got " + strconv.Quote(raw) + "; ticket types are common and priority.").Wrap(err)
	}
	return t, nil
}

func (s *Server) handleAdjust(dir state.Direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := ticketType(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		tickets, changed, err := s.operator.Adjust(r.Context(), t, dir)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, AdjustResult{Tickets: tickets, Changed: changed})
	}
}

func (s *Server) handleResetToMin(w http.ResponseWriter, r *http.Request) {
	t, err := ticketType(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tickets, err := s.operator.ResetToMin(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleResetAll(w http.ResponseWriter, r *http.Request) {
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	tickets, reset, err := s.operator.ResetAll(r.Context(), state.Confirmed(confirm))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !reset {
		s.writeError(w, r, errors.New("E142").
			WithDetail(state.ResetPrompt).
			WithSuggestion("Repeat the request with ?confirm=true"))
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleLogoUpload(w http.ResponseWriter, r *http.Request) {
	ref, err := logo.Receive(w, r, s.logos, s.config.LogoMaxBytes)
	if err != nil {
		if !errors.Is(err, logo.ErrTooLarge) && !errors.Is(err, logo.ErrNoFile) && !errors.Is(err, logo.ErrUnsupportedType) {
			err = errors.New("E146").Wrap(err)
		}
		s.writeError(w, r, err)
		return
	}
	s.setLogo(w, r, ref)
}

func (s *Server) handleLogoClear(w http.ResponseWriter, r *http.Request) {
	s.setLogo(w, r, "")
}

func (s *Server) setLogo(w http.ResponseWriter, r *http.Request, ref string) {
	cfg := s.operator.Config().WithLogo(ref)
	if err := s.operator.MutateConfig(r.Context(), cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AlertList{
		Selected: s.operator.Config().SelectedSound,
		Profiles: alert.Catalog[:],
	})
}

func (s *Server) handleTransmitLink(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": view.TransmitLink(s.origin(r), path),
	})
}

// origin returns the public origin, or the one the request came in on.
func (s *Server) origin(r *http.Request) string {
	if s.config.PublicURL != "" {
		return s.config.PublicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
