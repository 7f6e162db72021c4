package gamma

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Number tolerates the loose numeric typing in Gamma payloads: values arrive
// as JSON numbers, numeric strings, null, or garbage. Anything unusable
// decodes to 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*n = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(val)
		return nil
	}
	var val float64
	if err := json.Unmarshal(data, &val); err != nil {
		*n = 0
		return nil
	}
	*n = Number(val)
	return nil
}

func (n Number) Float64() float64 {
	return float64(n)
}

// Event is the raw listing payload shape. Optional fields stay zero-valued
// when absent; numerics coerce through Number.
type Event struct {
	ID           string   `json:"id"`
	Ticker       string   `json:"ticker"`
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	StartDate    string   `json:"startDate"`
	CreationDate string   `json:"creationDate"`
	EndDate      string   `json:"endDate"`
	Image        string   `json:"image,omitempty"`
	Icon         string   `json:"icon,omitempty"`
	Active       bool     `json:"active"`
	Closed       bool     `json:"closed"`
	Liquidity    Number   `json:"liquidity"`
	Volume       Number   `json:"volume"`
	OpenInterest Number   `json:"openInterest"`
	Markets      []Market `json:"markets"`
	Tags         []Tag    `json:"tags,omitempty"`
	CYOM         bool     `json:"cyom,omitempty"`
}

type Tag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// Market keeps liquidity/volume as raw JSON so the stored blob preserves the
// upstream representation (number or numeric string) verbatim.
type Market struct {
	ID                 string          `json:"id"`
	Question           string          `json:"question"`
	ConditionID        string          `json:"conditionId"`
	Slug               string          `json:"slug"`
	ResolutionSource   string          `json:"resolutionSource"`
	EndDate            string          `json:"endDate"`
	StartDate          string          `json:"startDate"`
	Liquidity          json.RawMessage `json:"liquidity,omitempty"`
	Volume             json.RawMessage `json:"volume,omitempty"`
	Image              string          `json:"image,omitempty"`
	Icon               string          `json:"icon,omitempty"`
	Description        string          `json:"description,omitempty"`
	Outcomes           string          `json:"outcomes"`
	OutcomePrices      string          `json:"outcomePrices"`
	Active             bool            `json:"active"`
	Closed             bool            `json:"closed"`
	MarketMakerAddress string          `json:"marketMakerAddress,omitempty"`
	ClobTokenIDs       string          `json:"clobTokenIds,omitempty"`
}

// MarketDetail is the subset of the single-market endpoint used by the
// analyzer. Outcomes, prices and token ids are JSON arrays encoded as strings.
type MarketDetail struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Description   string `json:"description"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
	ClobTokenIDs  string `json:"clobTokenIds"`
	Liquidity     Number `json:"liquidity"`
	Volume        Number `json:"volume"`
	EndDate       string `json:"endDate"`
}

// ParseStringArray decodes one of the JSON-encoded string arrays embedded in
// market payloads ("[\"Yes\", \"No\"]"). Empty input yields nil.
func ParseStringArray(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

// ParseFloatArray decodes a JSON-encoded array of numbers or numeric strings.
func ParseFloatArray(raw string) []float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		var n Number
		_ = n.UnmarshalJSON(item)
		out = append(out, n.Float64())
	}
	return out
}
