package pipeline

import (
	"encoding/json"
	"strings"

	"nukefarm/internal/client/polymarket/gamma"
)

// Normalize maps a raw Gamma event onto the persisted shape. Absent strings
// default to "" and unusable numerics to 0; the only hard requirement is a
// non-empty id, which yields *InvariantError for the caller to quarantine.
func Normalize(raw gamma.Event) (Event, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return Event{}, &InvariantError{Field: "id"}
	}
	ev := Event{
		ID:           raw.ID,
		Ticker:       raw.Ticker,
		Slug:         raw.Slug,
		Title:        raw.Title,
		Description:  raw.Description,
		StartDate:    raw.StartDate,
		CreationDate: raw.CreationDate,
		EndDate:      raw.EndDate,
		Image:        raw.Image,
		Icon:         raw.Icon,
		Active:       raw.Active,
		Closed:       raw.Closed,
		Liquidity:    raw.Liquidity.Float64(),
		Volume:       raw.Volume.Float64(),
		OpenInterest: raw.OpenInterest.Float64(),
		Markets:      make([]Market, 0, len(raw.Markets)),
		Tags:         make([]Tag, 0, len(raw.Tags)),
	}
	for _, m := range raw.Markets {
		ev.Markets = append(ev.Markets, Market{
			ID:                 m.ID,
			Question:           m.Question,
			ConditionID:        m.ConditionID,
			Slug:               m.Slug,
			ResolutionSource:   m.ResolutionSource,
			EndDate:            m.EndDate,
			StartDate:          m.StartDate,
			Liquidity:          coerceRawNumber(m.Liquidity),
			Volume:             coerceRawNumber(m.Volume),
			Image:              m.Image,
			Icon:               m.Icon,
			Description:        m.Description,
			Outcomes:           m.Outcomes,
			OutcomePrices:      m.OutcomePrices,
			Active:             m.Active,
			Closed:             m.Closed,
			MarketMakerAddress: m.MarketMakerAddress,
			ClobTokenIDs:       m.ClobTokenIDs,
		})
	}
	for _, t := range raw.Tags {
		ev.Tags = append(ev.Tags, Tag{Label: t.Label, Slug: t.Slug})
	}
	return ev, nil
}

func coerceRawNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n gamma.Number
	_ = n.UnmarshalJSON(raw)
	return n.Float64()
}
