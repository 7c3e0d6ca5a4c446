package state

import (
	"context"
	"errors"
)

// Event types carried on the bus. Payloads are full values.
const (
	EventTicketUpdate = "TICKET_UPDATE"
	EventConfigUpdate = "CONFIG_UPDATE"
)

// Direction moves a counter by one.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// ParseDirection accepts "next"/"prev" as well as "+1"/"-1".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "next", "+1", "1":
		return Next, nil
	case "prev", "-1":
		return Prev, nil
	}
	return 0, ErrInvalidDirection
}

var (
	// ErrStaleUpdate is returned by MutateTickets when the new state's
	// LastUpdate is not strictly greater than the current one.
	ErrStaleUpdate = errors.New("state: lastUpdate is not newer than the current state")

	// ErrInvalidDirection is returned for directions other than Next and Prev.
	ErrInvalidDirection = errors.New("state: direction must be +1 or -1")

	// ErrUnknownType is returned for ticket types other than common and priority.
	ErrUnknownType = errors.New("state: unknown ticket type")

	// ErrClosed is returned by mutations after Close.
	ErrClosed = errors.New("state: manager closed")
)

// ResetPrompt is the question asked before every counter is reset.
const ResetPrompt = "Deseja realmente reiniciar todas as senhas para o valor inicial?"

// Confirmer approves destructive operations.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Confirmed returns a Confirmer that answers yes without asking. HTTP and
// CLI callers use it once the user has already confirmed out of band.
func Confirmed(yes bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return yes })
}
