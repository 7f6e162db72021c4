package pipeline

import (
	"time"

	"nukefarm/internal/client/polymarket/gamma"
)

// FilterEvents drops events and markets that cannot produce a tradeable
// listing: closed markets, markets without a future end date, closed or
// expired events, and events left with no surviving market. The reference
// time is captured once so every comparison in a batch agrees.
// Idempotent: filtering an already-filtered slice changes nothing.
func FilterEvents(events []gamma.Event) []gamma.Event {
	now := time.Now().UTC()
	out := make([]gamma.Event, 0, len(events))
	for _, ev := range events {
		if ev.Closed {
			continue
		}
		if end, ok := parseEndDate(ev.EndDate); ok && !end.After(now) {
			continue
		}
		kept := make([]gamma.Market, 0, len(ev.Markets))
		for _, m := range ev.Markets {
			if m.Closed {
				continue
			}
			end, ok := parseEndDate(m.EndDate)
			if !ok || !end.After(now) {
				continue
			}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			continue
		}
		ev.Markets = kept
		out = append(out, ev)
	}
	return out
}

// parseEndDate treats an empty or unparseable date the same as a missing one.
func parseEndDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
