package pipeline

import (
	"testing"
	"time"

	"nukefarm/internal/client/polymarket/gamma"
)

func futureDate() string {
	return time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
}

func pastDate() string {
	return time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
}

func TestFilterEvents(t *testing.T) {
	open := gamma.Market{ID: "m1", EndDate: futureDate()}
	tests := []struct {
		name string
		in   gamma.Event
		keep bool
	}{
		{
			name: "open event with open market survives",
			in:   gamma.Event{ID: "1", EndDate: futureDate(), Markets: []gamma.Market{open}},
			keep: true,
		},
		{
			name: "closed event dropped",
			in:   gamma.Event{ID: "2", Closed: true, EndDate: futureDate(), Markets: []gamma.Market{open}},
		},
		{
			name: "expired event dropped",
			in:   gamma.Event{ID: "3", EndDate: pastDate(), Markets: []gamma.Market{open}},
		},
		{
			name: "event with only closed markets dropped",
			in: gamma.Event{ID: "4", EndDate: futureDate(), Markets: []gamma.Market{
				{ID: "m", Closed: true, EndDate: futureDate()},
			}},
		},
		{
			name: "event with only expired markets dropped",
			in: gamma.Event{ID: "5", EndDate: futureDate(), Markets: []gamma.Market{
				{ID: "m", EndDate: pastDate()},
			}},
		},
		{
			name: "market missing end date dropped with its event",
			in: gamma.Event{ID: "6", EndDate: futureDate(), Markets: []gamma.Market{
				{ID: "m"},
			}},
		},
		{
			name: "market with unparseable end date treated as missing",
			in: gamma.Event{ID: "7", EndDate: futureDate(), Markets: []gamma.Market{
				{ID: "m", EndDate: "soon"},
			}},
		},
		{
			name: "event with unparseable own end date kept",
			in:   gamma.Event{ID: "8", EndDate: "whenever", Markets: []gamma.Market{open}},
			keep: true,
		},
		{
			name: "event without markets dropped",
			in:   gamma.Event{ID: "9", EndDate: futureDate()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterEvents([]gamma.Event{tt.in})
			if tt.keep && len(got) != 1 {
				t.Fatalf("expected event kept, got %d", len(got))
			}
			if !tt.keep && len(got) != 0 {
				t.Fatalf("expected event dropped, got %d", len(got))
			}
		})
	}
}

func TestFilterEventsPrunesClosedMarkets(t *testing.T) {
	ev := gamma.Event{ID: "1", EndDate: futureDate(), Markets: []gamma.Market{
		{ID: "open", EndDate: futureDate()},
		{ID: "closed", Closed: true, EndDate: futureDate()},
		{ID: "expired", EndDate: pastDate()},
	}}
	got := FilterEvents([]gamma.Event{ev})
	if len(got) != 1 || len(got[0].Markets) != 1 || got[0].Markets[0].ID != "open" {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestFilterEventsIdempotent(t *testing.T) {
	in := []gamma.Event{
		{ID: "1", EndDate: futureDate(), Markets: []gamma.Market{
			{ID: "a", EndDate: futureDate()},
			{ID: "b", Closed: true, EndDate: futureDate()},
		}},
		{ID: "2", Closed: true, EndDate: futureDate(), Markets: []gamma.Market{{ID: "c", EndDate: futureDate()}}},
	}
	once := FilterEvents(in)
	twice := FilterEvents(once)
	if len(once) != len(twice) {
		t.Fatalf("second pass changed event count: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if len(once[i].Markets) != len(twice[i].Markets) {
			t.Fatalf("second pass changed market count for event %s", once[i].ID)
		}
	}
}
