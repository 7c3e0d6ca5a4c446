// Package errors provides coded, actionable errors for the ticket panel.
//
// Every failure the panel reports to a person (CLI output, HTTP error
// bodies, websocket error frames) is a *PanelError built from a registered
// code. The registry maps each code to:
//   - A category (storage, sync, validation, config, cli)
//   - A short message and a longer explanation
//   - The HTTP status used when the error crosses the API
//
// # Usage
//
//	err := errors.New("E140").
//	    WithDetail(`"vip" is not a ticket type`).
//	    WithSuggestion("Use common or priority")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E140: Unknown ticket type
//	//
//	//   "vip" is not a ticket type
//	//
//	//   Hint: Use common or priority
//
// Failures the core recovers from on its own (unreadable stored state,
// missing broadcast channel, alert playback) are logged, never turned into
// a PanelError.
package errors
