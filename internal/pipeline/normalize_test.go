package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"nukefarm/internal/client/polymarket/gamma"
)

func TestNormalizeDefaults(t *testing.T) {
	raw := gamma.Event{ID: "42"}
	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID != "42" || ev.Title != "" || ev.Slug != "" {
		t.Fatalf("unexpected defaults: %#v", ev)
	}
	if ev.Liquidity != 0 || ev.Volume != 0 || ev.OpenInterest != 0 {
		t.Fatalf("expected zero numerics: %#v", ev)
	}
	if ev.Markets == nil || ev.Tags == nil {
		t.Fatalf("expected empty slices, got nil")
	}
}

func TestNormalizeMissingID(t *testing.T) {
	_, err := Normalize(gamma.Event{ID: "  ", Title: "no id"})
	var invErr *InvariantError
	if !errors.As(err, &invErr) {
		t.Fatalf("expected *InvariantError, got %T: %v", err, err)
	}
	if invErr.Field != "id" {
		t.Fatalf("field = %q", invErr.Field)
	}
}

func TestNormalizeCoercesMarketNumerics(t *testing.T) {
	raw := gamma.Event{
		ID: "7",
		Markets: []gamma.Market{{
			ID:        "m1",
			Liquidity: json.RawMessage(`"1234.5"`),
			Volume:    json.RawMessage(`"abc"`),
		}},
	}
	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := ev.Markets[0]
	if m.Liquidity != 1234.5 {
		t.Fatalf("liquidity = %v", m.Liquidity)
	}
	if m.Volume != 0 {
		t.Fatalf("volume = %v", m.Volume)
	}
}

func TestNormalizePreservesEncodedArrays(t *testing.T) {
	raw := gamma.Event{
		ID: "9",
		Markets: []gamma.Market{{
			ID:            "m1",
			Outcomes:      `["Yes","No"]`,
			OutcomePrices: `["0.4","0.6"]`,
			ClobTokenIDs:  `["t1","t2"]`,
		}},
	}
	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := ev.Markets[0]
	if m.Outcomes != `["Yes","No"]` || m.OutcomePrices != `["0.4","0.6"]` || m.ClobTokenIDs != `["t1","t2"]` {
		t.Fatalf("encoded arrays were altered: %#v", m)
	}
}

func TestNormalizeEventRoundTripsThroughJSON(t *testing.T) {
	raw := gamma.Event{
		ID:        "5",
		Title:     "Will it rain?",
		Liquidity: 10,
		Tags:      []gamma.Tag{{Label: "Weather", Slug: "weather"}},
		Markets:   []gamma.Market{{ID: "m1", Question: "Rain?"}},
	}
	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blob, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Event
	if err := json.Unmarshal(blob, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Title != "Will it rain?" || len(back.Markets) != 1 || back.Tags[0].Slug != "weather" {
		t.Fatalf("round trip mismatch: %#v", back)
	}
}
