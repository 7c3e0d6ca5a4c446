package server

import (
	"encoding/json"
	"net/http"

	"github.com/fabrica-cultura/senhas/internal/errors"
	"github.com/fabrica-cultura/senhas/pkg/logo"
	"github.com/fabrica-cultura/senhas/pkg/state"
)

// panelError maps package errors to coded errors.
func panelError(err error) *errors.PanelError {
	var pe *errors.PanelError
	switch {
	case errors.As(err, &pe):
		return pe
	case errors.Is(err, state.ErrUnknownType):
		return errors.New("E140").Wrap(err)
	case errors.Is(err, state.ErrInvalidDirection):
		return errors.New("E141").Wrap(err)
	case errors.Is(err, state.ErrStaleUpdate):
		return errors.New("E120").Wrap(err)
	case errors.Is(err, state.ErrClosed):
		return errors.New("E100").WithDetail("The panel is shutting down.").Wrap(err)
	case errors.Is(err, logo.ErrTooLarge):
		return errors.New("E145").Wrap(err)
	case errors.Is(err, logo.ErrNoFile), errors.Is(err, logo.ErrUnsupportedType):
		return errors.New("E144").WithDetail(err.Error()).Wrap(err)
	}
	return errors.New("E101").Wrap(err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes err as a coded JSON body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	pe := panelError(err)
	status := pe.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "code", pe.Code, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", pe.Code, "error", err)
	}
	writeJSON(w, status, pe.Body())
}
