package pipeline

import (
	"testing"
	"time"
)

func TestKeyLimiterQuietInterval(t *testing.T) {
	t.Parallel()
	l := newKeyLimiter(50 * time.Millisecond)

	if !l.Allow("k", false) {
		t.Fatal("first update must pass")
	}
	if l.Allow("k", false) {
		t.Fatal("unchanged repeat inside quiet interval must be suppressed")
	}
	time.Sleep(60 * time.Millisecond)
	if !l.Allow("k", false) {
		t.Fatal("update after quiet interval must pass")
	}
}

func TestKeyLimiterTextChangeBypass(t *testing.T) {
	t.Parallel()
	l := newKeyLimiter(time.Minute)

	if !l.Allow("k", false) {
		t.Fatal("first update must pass")
	}
	if !l.Allow("k", true) {
		t.Fatal("text change must bypass the timer")
	}
	if l.Allow("k", false) {
		t.Fatal("unchanged follow-up must still be suppressed")
	}
}

func TestKeyLimiterPerKeyIsolation(t *testing.T) {
	t.Parallel()
	l := newKeyLimiter(time.Minute)

	if !l.Allow("a", false) {
		t.Fatal("first update for a must pass")
	}
	if !l.Allow("b", false) {
		t.Fatal("key b must not share key a's timer")
	}
}

func TestKeyLimiterForget(t *testing.T) {
	t.Parallel()
	l := newKeyLimiter(time.Minute)
	l.Allow("k", false)
	l.Forget("k")
	if !l.Allow("k", false) {
		t.Fatal("forgotten key must start fresh")
	}
}
