package storage

import (
	"bytes"
	"context"
	"encoding/json"
)

// LoadStatus tells how Load produced its value.
type LoadStatus string

const (
	// StatusFound means the stored document was decoded.
	StatusFound LoadStatus = "found"

	// StatusAbsent means nothing was stored under the key.
	StatusAbsent LoadStatus = "absent"

	// StatusCorrupt means the stored document could not be decoded.
	StatusCorrupt LoadStatus = "corrupt"

	// StatusUnavailable means the backend returned an error.
	StatusUnavailable LoadStatus = "unavailable"
)

// Load reads key from s and decodes it as JSON into a T. Whenever that is
// not possible the fallback is returned unchanged.
func Load[T any](ctx context.Context, s Store, key string, fallback T) (T, LoadStatus) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return fallback, StatusUnavailable
	}
	if data == nil {
		return fallback, StatusAbsent
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fallback, StatusCorrupt
	}

	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fallback, StatusCorrupt
	}
	return v, StatusFound
}

// Save encodes value as JSON and stores it under key.
func Save[T any](ctx context.Context, s Store, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data)
}
