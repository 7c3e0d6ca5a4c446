// Package server exposes the ticket panel over HTTP and WebSocket.
//
// One Server owns the operator context, a state.Manager joined to the
// shared hub, and serves the JSON API from it. Every browser that opens
// /ws gets a context of its own: a separate Manager on the same store and
// hub, a view.Selector, and while the transmit view is active an
// alert.Detector whose highlights and alert cues are pushed as frames.
//
// # Routes
//
//	GET  /healthz
//	GET  /metrics
//	GET  /api/state
//	PUT  /api/config
//	POST /api/tickets/{type}/next
//	POST /api/tickets/{type}/prev
//	POST /api/tickets/{type}/reset
//	POST /api/tickets/reset?confirm=true
//	POST /api/logo
//	DELETE /api/logo
//	GET  /api/alerts
//	GET  /api/transmit-link
//	GET  /ws?view=<indicator>
//
// Errors are JSON bodies carrying an internal/errors code:
//
//	{"code":"E140","category":"validation","message":"Unknown ticket type", ...}
//
// # WebSocket frames
//
// Frames are JSON objects {"type": ..., "payload": ...}. The server sends
// STATE once after the upgrade, then TICKET_UPDATE and CONFIG_UPDATE for
// every change, VIEW after navigation, HIGHLIGHT and PLAY_ALERT from the
// transmit view, and ERROR for rejected commands. Clients send commands:
//
//	{"type":"adjust","ticket":"common","direction":"next"}
//	{"type":"reset_min","ticket":"priority"}
//	{"type":"reset_all","confirm":true}
//	{"type":"config","config":{...}}
//	{"type":"navigate","view":"#/transmit"}
//	{"type":"preview","profile":3}
package server
