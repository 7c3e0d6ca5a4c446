package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/fabrica-cultura/senhas/pkg/ticket"
)

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("MissingKey", func(t *testing.T) {
		data, err := s.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if data != nil {
			t.Errorf("Get(missing) = %q, want nil", data)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := s.Set(ctx, "k", []byte("one")); err != nil {
			t.Fatalf("Set error: %v", err)
		}
		if err := s.Set(ctx, "k", []byte("two")); err != nil {
			t.Fatalf("Set error: %v", err)
		}
		data, err := s.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if string(data) != "two" {
			t.Errorf("Get = %q, want two", data)
		}
	})

	t.Run("RoundTripAggregates", func(t *testing.T) {
		cfg := ticket.DefaultConfig().WithLogo("https://example.org/logo.png")
		cfg.CommonMax = 50
		state := ticket.State{Common: 12, Priority: 3, LastUpdate: 1700000000123}

		if err := Save(ctx, s, KeyConfig, cfg); err != nil {
			t.Fatalf("Save config: %v", err)
		}
		if err := Save(ctx, s, KeyTickets, state); err != nil {
			t.Fatalf("Save tickets: %v", err)
		}

		gotCfg, status := Load(ctx, s, KeyConfig, ticket.DefaultConfig())
		if status != StatusFound || !gotCfg.Equal(cfg) {
			t.Errorf("Load config = %+v (%s), want %+v", gotCfg, status, cfg)
		}
		gotState, status := Load(ctx, s, KeyTickets, ticket.DefaultState(0))
		if status != StatusFound || gotState != state {
			t.Errorf("Load tickets = %+v (%s), want %+v", gotState, status, state)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	storeContract(t, s)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte("abc")
	s.Set(ctx, "k", data)
	data[0] = 'X'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value mutated through caller slice: %q", got)
	}
	got[1] = 'Y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Close()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get after Close = %v, want ErrStoreClosed", err)
	}
	if err := s.Set(ctx, "k", nil); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Set after Close = %v, want ErrStoreClosed", err)
	}
}
