package handler

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Now()
	l := NewRateLimiter(3, time.Hour)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatalf("4th request within the hour must be denied")
	}
	// Other keys are independent.
	if !l.Allow("5.6.7.8") {
		t.Fatalf("different key must pass")
	}
	// The window slides: the first hit expires, freeing one slot.
	now = now.Add(61 * time.Minute)
	if !l.Allow("1.2.3.4") {
		t.Fatalf("request after window must pass")
	}
	if l.Allow("1.2.3.4") {
		t.Fatalf("window must still cap recent hits")
	}
}

func TestRateLimiterDeniedAttemptsNotCounted(t *testing.T) {
	now := time.Now()
	l := NewRateLimiter(1, time.Hour)
	l.now = func() time.Time { return now }

	if !l.Allow("k") {
		t.Fatalf("first request should pass")
	}
	for i := 0; i < 5; i++ {
		if l.Allow("k") {
			t.Fatalf("over-limit request should be denied")
		}
	}
	now = now.Add(2 * time.Hour)
	if !l.Allow("k") {
		t.Fatalf("denied attempts must not extend the window")
	}
}
