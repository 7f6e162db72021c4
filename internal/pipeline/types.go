package pipeline

import "fmt"

// Event is the normalized catalog shape persisted into the event_data blob.
// Field names stay camelCase so the stored JSON is wire-compatible with the
// public frontend.
type Event struct {
	ID           string   `json:"id"`
	Ticker       string   `json:"ticker"`
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	StartDate    string   `json:"startDate"`
	CreationDate string   `json:"creationDate"`
	EndDate      string   `json:"endDate"`
	Image        string   `json:"image"`
	Icon         string   `json:"icon"`
	Active       bool     `json:"active"`
	Closed       bool     `json:"closed"`
	Liquidity    float64  `json:"liquidity"`
	Volume       float64  `json:"volume"`
	OpenInterest float64  `json:"openInterest"`
	Markets      []Market `json:"markets"`
	Tags         []Tag    `json:"tags"`
}

type Tag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// Market mirrors the upstream market shape with defaulted fields. Outcomes,
// outcomePrices and clobTokenIds stay JSON-encoded strings, exactly as Gamma
// delivers them.
type Market struct {
	ID                 string  `json:"id"`
	Question           string  `json:"question"`
	ConditionID        string  `json:"conditionId"`
	Slug               string  `json:"slug"`
	ResolutionSource   string  `json:"resolutionSource"`
	EndDate            string  `json:"endDate"`
	StartDate          string  `json:"startDate"`
	Liquidity          float64 `json:"liquidity"`
	Volume             float64 `json:"volume"`
	Image              string  `json:"image"`
	Icon               string  `json:"icon"`
	Description        string  `json:"description"`
	Outcomes           string  `json:"outcomes"`
	OutcomePrices      string  `json:"outcomePrices"`
	Active             bool    `json:"active"`
	Closed             bool    `json:"closed"`
	MarketMakerAddress string  `json:"marketMakerAddress"`
	ClobTokenIDs       string  `json:"clobTokenIds"`
}

// InvariantError marks a record that violates a mandatory-field invariant.
// Callers quarantine (log and skip) such records instead of failing the batch.
type InvariantError struct {
	Field string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("missing mandatory field %q", e.Field)
}

// Opportunity is one AI-identified trading opportunity inside an analysis.
type Opportunity struct {
	Headline          string  `json:"headline"`
	SelectedMarketID  string  `json:"selectedMarketId"`
	SelectedOutcome   string  `json:"selectedOutcome"`
	MarketQuestion    string  `json:"marketQuestion"`
	AIProbability     float64 `json:"aiProbability"`
	MarketProbability float64 `json:"marketProbability"`
	ConfidenceScore   float64 `json:"confidenceScore"`
	ExpectedValue     float64 `json:"expectedValue"`
	Recommendation    string  `json:"recommendation"`
	BetSizeUnits      float64 `json:"betSizeUnits"`
	Reasoning         string  `json:"reasoning"`
}

// Analysis is the per-market payload stored in market_analyses.analysis_data.
type Analysis struct {
	Summary       string        `json:"summary"`
	Sources       []string      `json:"sources"`
	Opportunities []Opportunity `json:"opportunities"`
}

// AnalysisResult is the outcome of one on-demand analysis run, returned to
// the HTTP layer verbatim.
type AnalysisResult struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	EventID          string `json:"eventId,omitempty"`
	EventTitle       string `json:"eventTitle,omitempty"`
	MarketsProcessed int    `json:"marketsProcessed,omitempty"`
}
