package storage

import (
	"context"
	"errors"
)

// Keys under which the panel keeps its two aggregates.
const (
	KeyConfig  = "fabrica-config"
	KeyTickets = "fabrica-tickets"
)

// Store defines the interface for persistence backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the blob stored under key.
	// Returns (nil, nil) if the key doesn't exist.
	// Returns (nil, err) on backend errors.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the blob stored under key. When Set returns nil the
	// value is visible to every other context on the device.
	Set(ctx context.Context, key string, data []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("storage: store is closed")
