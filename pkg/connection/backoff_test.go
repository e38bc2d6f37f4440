package connection

import (
	"testing"
	"time"
)

func TestBackoffGrowthAndCap(t *testing.T) {
	b := NewBackoff()

	want := BackoffSequence()
	for i, base := range want {
		if got := b.Current(); got != base {
			t.Fatalf("attempt %d: Current() = %s, want %s", i, got, base)
		}
		delay := b.Next()
		if delay <= 0 || delay > base {
			t.Fatalf("attempt %d: Next() = %s, want in (0, %s]", i, delay, base)
		}
	}

	// Base stays at the cap from here on
	for i := 0; i < 5; i++ {
		if got := b.Current(); got != MaxBackoff {
			t.Fatalf("post-cap Current() = %s, want %s", got, MaxBackoff)
		}
		b.Next()
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff()
	for i := 0; i < 4; i++ {
		b.Next()
	}
	if b.Attempts() != 4 {
		t.Errorf("Attempts() = %d, want 4", b.Attempts())
	}

	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("Attempts() after reset = %d, want 0", b.Attempts())
	}
	if b.Current() != InitialBackoff {
		t.Errorf("Current() after reset = %s, want %s", b.Current(), InitialBackoff)
	}
}

func TestBackoffJitterVaries(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: time.Hour,
		Max:     time.Hour,
	})

	// Draws from (0, 1h] collide with vanishing probability
	first := b.Next()
	distinct := false
	for i := 0; i < 10; i++ {
		if b.Next() != first {
			distinct = true
			break
		}
	}
	if !distinct {
		t.Error("jittered delays never varied")
	}
}

func TestBackoffConfigDefaults(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Initial: -1, Max: 0, Multiplier: 0.5})
	if b.initial != InitialBackoff || b.max != MaxBackoff || b.multiplier != BackoffMultiplier {
		t.Errorf("defaults not applied: %s/%s/%v", b.initial, b.max, b.multiplier)
	}
}
