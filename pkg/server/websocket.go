package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fabrica-cultura/senhas/internal/errors"
	"github.com/fabrica-cultura/senhas/pkg/alert"
	"github.com/fabrica-cultura/senhas/pkg/state"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
	"github.com/fabrica-cultura/senhas/pkg/view"
)

// Frame types sent to browsers.
const (
	FrameState        = "STATE"
	FrameTicketUpdate = state.EventTicketUpdate
	FrameConfigUpdate = state.EventConfigUpdate
	FrameView         = "VIEW"
	FrameHighlight    = "HIGHLIGHT"
	FramePlayAlert    = "PLAY_ALERT"
	FrameError        = "ERROR"
)

// Frame is one websocket message from the server.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatePayload is the payload of a STATE frame.
type StatePayload struct {
	View      view.View        `json:"view"`
	Config    ticket.Config    `json:"config"`
	Tickets   ticket.State     `json:"tickets"`
	Highlight HighlightPayload `json:"highlight"`
}

// HighlightPayload is the payload of a HIGHLIGHT frame.
type HighlightPayload struct {
	Phase string      `json:"phase"`
	Type  ticket.Type `json:"type,omitempty"`
}

// ViewPayload is the payload of a VIEW frame.
type ViewPayload struct {
	View view.View `json:"view"`
	Link string    `json:"link"`
}

// Command is one websocket message from a browser.
type Command struct {
	Type      string         `json:"type"`
	Ticket    string         `json:"ticket,omitempty"`
	Direction string         `json:"direction,omitempty"`
	Confirm   bool           `json:"confirm,omitempty"`
	View      string         `json:"view,omitempty"`
	Profile   *int           `json:"profile,omitempty"`
	Config    *ticket.Config `json:"config,omitempty"`
}

var errSendQueueFull = stderrors.New("server: send queue full")

var errSessionClosed = stderrors.New("server: session closed")

func highlightPayload(st alert.Status) HighlightPayload {
	p := HighlightPayload{Phase: st.Phase.String()}
	if st.Phase == alert.Highlighting {
		p.Type = st.Type
	}
	return p
}

// session is one browser context.
type session struct {
	server   *Server
	conn     *websocket.Conn
	manager  *state.Manager
	selector *view.Selector
	logger   *slog.Logger
	link     string

	ctx    context.Context
	cancel context.CancelFunc

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// mu guards detector and the view label used for metrics.
	mu       sync.Mutex
	detector *alert.Detector
	view     view.View

	removeTickets func()
	removeConfig  func()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess, err := s.newSession(conn, r.URL.Query().Get("view"), view.TransmitLink(s.origin(r), "/"))
	if err != nil {
		s.logger.Error("open context failed", "error", err)
		conn.Close()
		return
	}

	go sess.writeLoop()
	sess.readLoop()
}

func (s *Server) newSession(conn *websocket.Conn, indicator, link string) (*session, error) {
	ctx, cancel := context.WithCancel(s.ctx)
	sess := &session{
		server:   s,
		conn:     conn,
		selector: view.NewSelector(indicator),
		link:     link,
		ctx:      ctx,
		cancel:   cancel,
		send:     make(chan []byte, s.config.SendQueue),
		done:     make(chan struct{}),
	}

	logger := s.logger.With("context", "browser")
	manager, err := s.openManager(ctx, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	sess.manager = manager
	sess.logger = logger.With("remote", conn.RemoteAddr().String())

	sess.view = sess.selector.Current()
	if sess.view == view.Transmit {
		sess.startDetector()
	}
	sess.selector.OnChange(sess.switchView)
	sess.removeTickets = manager.OnTickets(sess.ticketsChanged)
	sess.removeConfig = manager.OnConfig(sess.configChanged)

	s.track(sess)
	s.metrics.ContextOpened(string(sess.view))
	sess.logger.Debug("context opened", "view", sess.view)

	sess.push(FrameState, StatePayload{
		View:      sess.view,
		Config:    manager.Config(),
		Tickets:   manager.Tickets(),
		Highlight: sess.highlight(),
	})
	return sess, nil
}

// ticketsChanged forwards a counter change and feeds the detector.
func (s *session) ticketsChanged(t ticket.State) {
	s.push(FrameTicketUpdate, t)
	s.mu.Lock()
	d := s.detector
	s.mu.Unlock()
	if d != nil {
		d.ObserveTickets(s.ctx, t)
	}
}

func (s *session) configChanged(cfg ticket.Config) {
	s.push(FrameConfigUpdate, cfg)
	s.mu.Lock()
	d := s.detector
	s.mu.Unlock()
	if d != nil {
		d.ObserveConfig(cfg)
	}
}

func (s *session) highlight() HighlightPayload {
	s.mu.Lock()
	d := s.detector
	s.mu.Unlock()
	if d == nil {
		return HighlightPayload{Phase: alert.Idle.String()}
	}
	return highlightPayload(d.Status())
}

// startDetector attaches an alert detector seeded with the current
// counters, so only later changes alert.
func (s *session) startDetector() {
	d := alert.NewDetector(s.manager.Tickets(), s.manager.Config(), alert.PlayerFunc(s.play),
		alert.WithClock(s.server.clock),
		alert.WithDwell(s.server.config.Dwell),
		alert.WithLogger(s.logger),
		alert.WithRecorder(s.server.metrics),
		alert.OnChange(func(st alert.Status) {
			s.push(FrameHighlight, highlightPayload(st))
		}),
	)
	s.mu.Lock()
	s.detector = d
	s.mu.Unlock()
}

func (s *session) stopDetector() {
	s.mu.Lock()
	d := s.detector
	s.detector = nil
	s.mu.Unlock()
	if d != nil {
		d.Stop()
	}
}

func (s *session) switchView(v view.View) {
	s.mu.Lock()
	old := s.view
	s.view = v
	s.mu.Unlock()

	s.server.metrics.ContextClosed(string(old))
	s.server.metrics.ContextOpened(string(v))

	if v == view.Transmit {
		s.startDetector()
	} else if old == view.Transmit {
		s.stopDetector()
	}
	s.push(FrameView, ViewPayload{View: v, Link: s.link})
}

// play sends the alert cue to the browser. It never blocks.
func (s *session) play(_ context.Context, profile int) error {
	p, err := alert.Lookup(profile)
	if err != nil {
		return err
	}
	return s.push(FramePlayAlert, p)
}

// push queues a frame for the writer. A client whose queue is full is
// disconnected.
func (s *session) push(typ string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(Frame{Type: typ, Payload: raw})
	if err != nil {
		return err
	}

	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- data:
		return nil
	default:
		s.logger.Warn("client too slow, closing", "frame", typ)
		go s.close()
		return errSendQueueFull
	}
}

func (s *session) pushError(err error) {
	pe := panelError(err)
	s.logger.Debug("command rejected", "code", pe.Code, "error", err)
	s.push(FrameError, pe.Body())
}

func (s *session) readLoop() {
	defer s.close()

	cfg := s.server.config
	s.conn.SetReadLimit(cfg.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read failed", "error", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.pushError(errors.New("E144").WithDetail(err.Error()).Wrap(err))
			continue
		}
		if err := s.handle(cmd); err != nil {
			s.pushError(err)
		}
	}
}

// handle runs one command against this context's manager.
func (s *session) handle(cmd Command) error {
	ctx := s.ctx
	switch cmd.Type {
	case "adjust":
		t, err := ticket.ParseType(cmd.Ticket)
		if err != nil {
			return errors.New("E140").Wrap(err)
		}
		dir, err := state.ParseDirection(cmd.Direction)
		if err != nil {
			return err
		}
		_, _, err = s.manager.Adjust(ctx, t, dir)
		return err

	case "reset_min":
		t, err := ticket.ParseType(cmd.Ticket)
		if err != nil {
			return errors.New("E140").Wrap(err)
		}
		_, err = s.manager.ResetToMin(ctx, t)
		return err

	case "reset_all":
		_, reset, err := s.manager.ResetAll(ctx, state.Confirmed(cmd.Confirm))
		if err != nil {
			return err
		}
		if !reset {
			return errors.New("E142").WithDetail(state.ResetPrompt)
		}
		return nil

	case "config":
		if cmd.Config == nil {
			return errors.New("E144").WithDetail("config command without config")
		}
		if err := validateConfig(*cmd.Config); err != nil {
			return err
		}
		return s.manager.MutateConfig(ctx, *cmd.Config)

	case "navigate":
		s.selector.Navigate(cmd.View)
		return nil

	case "preview":
		if cmd.Profile == nil || !alert.ValidProfile(*cmd.Profile) {
			return errors.New("E143")
		}
		return s.play(ctx, *cmd.Profile)
	}
	return errors.New("E144").WithDetail("unknown command " + cmd.Type)
}

func (s *session) writeLoop() {
	cfg := s.server.config
	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer ticker.Stop()
	defer s.conn.Close()
	defer s.close()

	for {
		select {
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// close tears the context down. The writer sends the close frame and
// closes the connection. It is safe to call more than once.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()
		s.removeTickets()
		s.removeConfig()
		s.stopDetector()
		s.manager.Close()

		s.mu.Lock()
		v := s.view
		s.mu.Unlock()
		s.server.metrics.ContextClosed(string(v))
		s.server.untrack(s)
		s.logger.Debug("context closed", "view", v)
	})
}
