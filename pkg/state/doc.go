// Package state owns the ticket counters and the panel configuration for
// one context.
//
// A Manager loads both aggregates from a storage.Store when it is created,
// applies local mutations (persist, then broadcast), and applies events
// broadcast by other contexts on the same bus channel. Remote events
// replace the local copy wholesale: the last writer wins and nothing is
// merged.
//
// Basic usage:
//
//	hub := bus.NewHub()
//	store := storage.NewMemoryStore()
//
//	operator, err := state.New(ctx, store, hub.Open(bus.DefaultChannel))
//	if err != nil {
//	    return err
//	}
//	defer operator.Close()
//
//	s, changed, err := operator.Adjust(ctx, ticket.Common, state.Next)
//
// Every successful mutation persists exactly once and publishes exactly one
// event. Adjustments that would not change the counter do neither.
package state
