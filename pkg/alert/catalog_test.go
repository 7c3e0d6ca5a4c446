package alert

import (
	"context"
	"testing"
)

func TestLookup(t *testing.T) {
	for i := 0; i < ProfileCount; i++ {
		p, err := Lookup(i)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", i, err)
		}
		if p.Index != i {
			t.Errorf("Lookup(%d).Index = %d", i, p.Index)
		}
		if len(p.Tones) == 0 {
			t.Errorf("profile %d has no tones", i)
		}
	}

	for _, bad := range []int{-1, ProfileCount, 42} {
		p, err := Lookup(bad)
		if err == nil {
			t.Errorf("Lookup(%d) should fail", bad)
		}
		if p.Name != fallbackProfile.Name {
			t.Errorf("Lookup(%d) = %q, want fallback beep", bad, p.Name)
		}
	}
}

func TestProfileLength(t *testing.T) {
	if got := Catalog[3].Length(); got != 1.25 {
		t.Errorf("Length() = %v, want 1.25", got)
	}
	if got := (Profile{}).Length(); got != 0 {
		t.Errorf("empty Length() = %v, want 0", got)
	}
}

func TestLogPlayer(t *testing.T) {
	var p LogPlayer
	if err := p.Play(context.Background(), 1); err != nil {
		t.Errorf("Play(1): %v", err)
	}
	if err := p.Play(context.Background(), 9); err == nil {
		t.Error("Play(9) should report the out of range profile")
	}
}
