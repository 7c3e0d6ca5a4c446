package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fabrica-cultura/senhas/internal/errors"
	"github.com/fabrica-cultura/senhas/pkg/alert"
	"github.com/fabrica-cultura/senhas/pkg/ticket"
	"github.com/fabrica-cultura/senhas/pkg/view"
)

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (ts *testServer) dial(t *testing.T, indicator string) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws?view=" + indicator
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) next() Frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := c.conn.ReadJSON(&f); err != nil {
		c.t.Fatalf("read frame: %v", err)
	}
	return f
}

// expect reads the next frame, checks its type and decodes its payload.
func (c *wsClient) expect(typ string, v any) {
	c.t.Helper()
	f := c.next()
	if f.Type != typ {
		c.t.Fatalf("frame type = %s (%s), want %s", f.Type, f.Payload, typ)
	}
	if v != nil {
		if err := json.Unmarshal(f.Payload, v); err != nil {
			c.t.Fatalf("decode %s payload: %v", typ, err)
		}
	}
}

func (c *wsClient) send(cmd Command) {
	c.t.Helper()
	if err := c.conn.WriteJSON(cmd); err != nil {
		c.t.Fatalf("send %s: %v", cmd.Type, err)
	}
}

func (c *wsClient) expectErrorCode(code string) {
	c.t.Helper()
	var body errors.Body
	c.expect(FrameError, &body)
	if body.Code != code {
		c.t.Errorf("error code = %q, want %q", body.Code, code)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestWebSocketInitialState(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/tickets/priority/next", nil, "")

	c := ts.dial(t, "%23%2Fcommand")
	var st StatePayload
	c.expect(FrameState, &st)

	if st.View != view.Command {
		t.Errorf("view = %q, want command", st.View)
	}
	if st.Tickets.Priority != 2 {
		t.Errorf("tickets = %+v", st.Tickets)
	}
	if st.Highlight.Phase != "idle" {
		t.Errorf("highlight = %+v", st.Highlight)
	}
	waitFor(t, "session registration", func() bool { return ts.Sessions() == 1 })
}

func TestWebSocketUnknownViewDefaultsToConfig(t *testing.T) {
	ts := newTestServer(t, nil)
	c := ts.dial(t, "lobby")
	var st StatePayload
	c.expect(FrameState, &st)
	if st.View != view.Config {
		t.Errorf("view = %q, want config", st.View)
	}
}

func TestTransmitViewHighlightsAndAlerts(t *testing.T) {
	ts := newTestServer(t, &Config{})

	cfg := ticket.DefaultConfig()
	cfg.SelectedSound = 3
	if err := ts.Operator().MutateConfig(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	display := ts.dial(t, "transmit")
	display.expect(FrameState, nil)

	// Operator calls the next common ticket.
	ts.do(t, http.MethodPost, "/api/tickets/common/next", nil, "")

	var s ticket.State
	display.expect(FrameTicketUpdate, &s)
	if s.Common != 2 {
		t.Errorf("common = %d, want 2", s.Common)
	}
	var h HighlightPayload
	display.expect(FrameHighlight, &h)
	if h.Phase != "highlighting" || h.Type != ticket.Common {
		t.Errorf("highlight = %+v", h)
	}
	var p alert.Profile
	display.expect(FramePlayAlert, &p)
	if p.Index != 3 {
		t.Errorf("played profile %d, want 3", p.Index)
	}

	// Then a priority ticket.
	ts.do(t, http.MethodPost, "/api/tickets/priority/next", nil, "")
	display.expect(FrameTicketUpdate, nil)
	display.expect(FrameHighlight, &h)
	if h.Type != ticket.Priority {
		t.Errorf("highlight type = %q, want priority", h.Type)
	}
	display.expect(FramePlayAlert, nil)

	// The highlight clears after the dwell.
	ts.clock.Advance(4 * time.Second)
	display.expect(FrameHighlight, &h)
	if h.Phase != "idle" {
		t.Errorf("after dwell phase = %q, want idle", h.Phase)
	}
}

func TestNoopAdjustDoesNotAlert(t *testing.T) {
	ts := newTestServer(t, nil)
	display := ts.dial(t, "transmit")
	display.expect(FrameState, nil)

	res := decode[AdjustResult](t, ts.do(t, http.MethodPost, "/api/tickets/common/prev", nil, ""))
	if res.Changed {
		t.Fatal("prev at min changed the counter")
	}

	// A later real change must be the very next frame.
	ts.do(t, http.MethodPost, "/api/tickets/common/next", nil, "")
	var s ticket.State
	display.expect(FrameTicketUpdate, &s)
	if s.Common != 2 {
		t.Errorf("common = %d", s.Common)
	}
}

func TestWebSocketCommands(t *testing.T) {
	ts := newTestServer(t, nil)
	c := ts.dial(t, "command")
	c.expect(FrameState, nil)

	c.send(Command{Type: "adjust", Ticket: "common", Direction: "next"})
	var s ticket.State
	c.expect(FrameTicketUpdate, &s)
	if s.Common != 2 {
		t.Errorf("common = %d, want 2", s.Common)
	}
	waitFor(t, "operator to see the command", func() bool {
		return ts.Operator().Tickets().Common == 2
	})

	c.send(Command{Type: "reset_min", Ticket: "common"})
	c.expect(FrameTicketUpdate, &s)
	if s.Common != 1 {
		t.Errorf("common = %d after reset_min", s.Common)
	}

	c.send(Command{Type: "reset_all"})
	c.expectErrorCode("E142")

	c.send(Command{Type: "reset_all", Confirm: true})
	c.expect(FrameTicketUpdate, nil)

	cfg := ticket.DefaultConfig()
	cfg.WelcomeText = "Bem-vindo"
	c.send(Command{Type: "config", Config: &cfg})
	var got ticket.Config
	c.expect(FrameConfigUpdate, &got)
	if got.WelcomeText != "Bem-vindo" {
		t.Errorf("welcomeText = %q", got.WelcomeText)
	}
}

func TestWebSocketRejectsBadCommands(t *testing.T) {
	ts := newTestServer(t, nil)
	c := ts.dial(t, "command")
	c.expect(FrameState, nil)

	c.send(Command{Type: "adjust", Ticket: "vip", Direction: "next"})
	c.expectErrorCode("E140")

	c.send(Command{Type: "adjust", Ticket: "common", Direction: "sideways"})
	c.expectErrorCode("E141")

	c.send(Command{Type: "config"})
	c.expectErrorCode("E144")

	bad := ticket.DefaultConfig()
	bad.SelectedSound = -1
	c.send(Command{Type: "config", Config: &bad})
	c.expectErrorCode("E143")

	c.send(Command{Type: "dance"})
	c.expectErrorCode("E144")

	if err := c.conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	c.expectErrorCode("E144")
}

func TestNavigateStartsAndStopsAlerts(t *testing.T) {
	ts := newTestServer(t, nil)
	c := ts.dial(t, "config")
	c.expect(FrameState, nil)

	// Unknown indicators keep the current view and send nothing.
	c.send(Command{Type: "navigate", View: "#/lobby"})

	c.send(Command{Type: "navigate", View: "#/transmit"})
	var v ViewPayload
	c.expect(FrameView, &v)
	if v.View != view.Transmit {
		t.Errorf("view = %q", v.View)
	}
	if !strings.HasSuffix(v.Link, "/#/transmit") {
		t.Errorf("link = %q", v.Link)
	}

	ts.do(t, http.MethodPost, "/api/tickets/common/next", nil, "")
	c.expect(FrameTicketUpdate, nil)
	c.expect(FrameHighlight, nil)
	c.expect(FramePlayAlert, nil)

	c.send(Command{Type: "navigate", View: "command"})
	c.expect(FrameView, &v)
	if v.View != view.Command {
		t.Errorf("view = %q", v.View)
	}

	// Away from transmit, changes no longer highlight.
	ts.do(t, http.MethodPost, "/api/tickets/common/next", nil, "")
	c.expect(FrameTicketUpdate, nil)
	c.send(Command{Type: "preview", Profile: intPtr(1)})
	var p alert.Profile
	c.expect(FramePlayAlert, &p)
	if p.Index != 1 {
		t.Errorf("preview profile = %d", p.Index)
	}
}

func TestPreviewIsLocalToContext(t *testing.T) {
	ts := newTestServer(t, nil)
	a := ts.dial(t, "config")
	a.expect(FrameState, nil)
	b := ts.dial(t, "transmit")
	b.expect(FrameState, nil)

	a.send(Command{Type: "preview", Profile: intPtr(4)})
	var p alert.Profile
	a.expect(FramePlayAlert, &p)
	if p.Index != 4 {
		t.Errorf("profile = %d", p.Index)
	}

	a.send(Command{Type: "preview", Profile: intPtr(9)})
	a.expectErrorCode("E143")

	// b saw nothing from the preview; its next frame is the real change.
	ts.do(t, http.MethodPost, "/api/tickets/priority/next", nil, "")
	b.expect(FrameTicketUpdate, nil)
}

func TestShutdownClosesSessions(t *testing.T) {
	ts := newTestServer(t, nil)
	c := ts.dial(t, "transmit")
	c.expect(FrameState, nil)
	waitFor(t, "session registration", func() bool { return ts.Sessions() == 1 })

	if err := ts.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if ts.Sessions() != 0 {
		t.Errorf("sessions = %d after shutdown", ts.Sessions())
	}

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read after shutdown = %v, want going-away close", err)
	}
}

func TestClientDisconnectReleasesContext(t *testing.T) {
	ts := newTestServer(t, nil)
	c := ts.dial(t, "command")
	c.expect(FrameState, nil)
	waitFor(t, "session registration", func() bool { return ts.Sessions() == 1 })

	members := ts.hub.Members(ts.Config().Channel)
	c.conn.Close()
	waitFor(t, "session release", func() bool { return ts.Sessions() == 0 })
	if got := ts.hub.Members(ts.Config().Channel); got != members-1 {
		t.Errorf("hub members = %d, want %d", got, members-1)
	}
}

func intPtr(v int) *int { return &v }
