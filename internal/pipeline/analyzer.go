package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"nukefarm/internal/client/polymarket/clob"
	"nukefarm/internal/client/polymarket/gamma"
	"nukefarm/internal/config"
	"nukefarm/internal/models"
	"nukefarm/internal/repository"
)

// MarketDetailSource fetches fresh per-market data for enrichment.
type MarketDetailSource interface {
	GetMarketRawByID(ctx context.Context, marketID string) ([]byte, error)
}

// PriceSource answers batched orderbook quote lookups.
type PriceSource interface {
	GetPrices(ctx context.Context, requests []clob.PriceRequest) (map[string]clob.SidePrices, error)
}

// AnalysisClient runs one grounded generation constrained to a JSON schema.
type AnalysisClient interface {
	GenerateGrounded(ctx context.Context, prompt string, schema map[string]any) (text string, sources []string, err error)
}

// Analyzer picks one unanalyzed event at random, enriches its markets with
// fresh details and live quotes, and asks the AI for a grounded analysis.
// Every selected event is marked analyzed exactly once, success or not, so a
// permanently failing event cannot wedge the pool.
type Analyzer struct {
	Repo    repository.Repository
	Markets MarketDetailSource
	Prices  PriceSource
	AI      AnalysisClient
	Config  config.AnalyzerConfig
	Logger  *zap.Logger

	randIntn func(n int) int
}

type marketContext struct {
	ID           string
	Question     string
	Description  string
	EndDate      string
	Liquidity    float64
	Volume       float64
	Outcomes     []string
	TokenIDs     []string
	CachedPrices []float64
	PriceLabels  []string
}

// AnalyzeRandom runs one on-demand analysis pass.
func (a *Analyzer) AnalyzeRandom(ctx context.Context) AnalysisResult {
	pool := a.Config.PoolSize
	if pool <= 0 {
		pool = 50
	}
	rows, err := a.Repo.ListUnanalyzedEvents(ctx, pool)
	if err != nil {
		a.Logger.Warn("failed to load analysis candidates", zap.Error(err))
		return AnalysisResult{Success: false, Message: "Failed to load candidate events."}
	}
	if len(rows) == 0 {
		return AnalysisResult{Success: false, Message: "No unanalyzed events available."}
	}
	intn := a.randIntn
	if intn == nil {
		intn = rand.Intn
	}
	picked := rows[intn(len(rows))]

	result := a.analyzeEvent(ctx, picked)

	// At-most-once attempt policy: the pick leaves the pool regardless of how
	// the attempt went.
	if affected, err := a.Repo.MarkEventAnalyzed(ctx, picked.ID, time.Now().UTC()); err != nil {
		a.Logger.Warn("failed to mark event analyzed", zap.String("event_id", picked.ID), zap.Error(err))
	} else if affected == 0 {
		a.Logger.Warn("mark analyzed matched no row", zap.String("event_id", picked.ID))
	}
	return result
}

func (a *Analyzer) analyzeEvent(ctx context.Context, row models.IndexedEvent) AnalysisResult {
	var ev Event
	if err := json.Unmarshal(row.EventData, &ev); err != nil {
		a.Logger.Warn("stored event blob unreadable", zap.String("event_id", row.ID), zap.Error(err))
		return AnalysisResult{Success: false, Message: "Stored event data is unreadable.", EventID: row.ID}
	}

	contexts := a.enrichMarkets(ctx, ev)
	if len(contexts) == 0 {
		a.Logger.Warn("no usable market data", zap.String("event_id", ev.ID))
		return AnalysisResult{Success: false, Message: "No market data available for analysis.", EventID: ev.ID, EventTitle: ev.Title}
	}
	a.labelPrices(ctx, contexts)

	prompt := buildAnalysisPrompt(ev, contexts)
	text, sources, err := a.AI.GenerateGrounded(ctx, prompt, analysisSchema())
	if err != nil {
		a.Logger.Warn("grounded analysis failed", zap.String("event_id", ev.ID), zap.Error(err))
		return AnalysisResult{Success: false, Message: "AI analysis failed.", EventID: ev.ID, EventTitle: ev.Title}
	}
	parsed, err := parseAnalysisResponse(text)
	if err != nil {
		a.Logger.Warn("analysis response unparseable", zap.String("event_id", ev.ID), zap.Error(err))
		return AnalysisResult{Success: false, Message: "AI analysis response was unparseable.", EventID: ev.ID, EventTitle: ev.Title}
	}

	// One row per event market, enriched or not. Markets that fell out of the
	// prompt still get a row with the shared summary and no opportunities.
	analyses := make([]models.MarketAnalysis, 0, len(ev.Markets))
	now := time.Now().UTC()
	for _, m := range ev.Markets {
		payload := Analysis{
			Summary:       parsed.Summary,
			Sources:       sources,
			Opportunities: opportunitiesForMarket(parsed.Opportunities, m.ID),
		}
		blob, err := json.Marshal(payload)
		if err != nil {
			a.Logger.Warn("failed to encode analysis", zap.String("market_id", m.ID), zap.Error(err))
			continue
		}
		analyses = append(analyses, models.MarketAnalysis{
			EventID:      ev.ID,
			MarketID:     m.ID,
			AnalysisData: datatypes.JSON(blob),
			CreatedAt:    now,
		})
	}
	if err := a.Repo.InsertMarketAnalyses(ctx, analyses); err != nil {
		a.Logger.Warn("failed to persist analyses", zap.String("event_id", ev.ID), zap.Error(err))
		return AnalysisResult{Success: false, Message: "Failed to persist analysis.", EventID: ev.ID, EventTitle: ev.Title}
	}

	a.Logger.Info("analyzed event",
		zap.String("event_id", ev.ID),
		zap.Int("markets", len(ev.Markets)),
		zap.Int("enriched", len(contexts)),
		zap.Int("opportunities", len(parsed.Opportunities)))
	return AnalysisResult{
		Success:          true,
		Message:          "Analysis complete.",
		EventID:          ev.ID,
		EventTitle:       ev.Title,
		MarketsProcessed: len(ev.Markets),
	}
}

// enrichMarkets fetches fresh details per market. A failed fetch drops that
// market only.
func (a *Analyzer) enrichMarkets(ctx context.Context, ev Event) []*marketContext {
	out := make([]*marketContext, 0, len(ev.Markets))
	for _, m := range ev.Markets {
		raw, err := a.Markets.GetMarketRawByID(ctx, m.ID)
		if err != nil {
			a.Logger.Warn("market detail fetch failed", zap.String("market_id", m.ID), zap.Error(err))
			continue
		}
		var detail gamma.MarketDetail
		if err := json.Unmarshal(raw, &detail); err != nil {
			a.Logger.Warn("market detail unparseable", zap.String("market_id", m.ID), zap.Error(err))
			continue
		}
		mc := &marketContext{
			ID:           m.ID,
			Question:     firstNonEmpty(detail.Question, m.Question),
			Description:  firstNonEmpty(detail.Description, m.Description),
			EndDate:      firstNonEmpty(detail.EndDate, m.EndDate),
			Liquidity:    detail.Liquidity.Float64(),
			Volume:       detail.Volume.Float64(),
			Outcomes:     gamma.ParseStringArray(detail.Outcomes),
			TokenIDs:     gamma.ParseStringArray(detail.ClobTokenIDs),
			CachedPrices: gamma.ParseFloatArray(detail.OutcomePrices),
		}
		out = append(out, mc)
	}
	return out
}

// labelPrices attaches a formatted price per outcome, preferring a positive
// live SELL quote over the cached listing price. A failed quote lookup keeps
// everything on cached prices.
func (a *Analyzer) labelPrices(ctx context.Context, contexts []*marketContext) {
	tokenSet := map[string]struct{}{}
	tokens := make([]string, 0)
	for _, mc := range contexts {
		for _, id := range mc.TokenIDs {
			if id == "" {
				continue
			}
			if _, ok := tokenSet[id]; ok {
				continue
			}
			tokenSet[id] = struct{}{}
			tokens = append(tokens, id)
		}
	}
	var quotes map[string]clob.SidePrices
	if len(tokens) > 0 {
		var err error
		quotes, err = a.Prices.GetPrices(ctx, clob.BuySellRequests(tokens))
		if err != nil {
			a.Logger.Warn("live price lookup failed, using cached prices", zap.Error(err))
			quotes = nil
		}
	}
	for _, mc := range contexts {
		mc.PriceLabels = make([]string, len(mc.Outcomes))
		for i := range mc.Outcomes {
			mc.PriceLabels[i] = priceLabel(mc, i, quotes)
		}
	}
}

func priceLabel(mc *marketContext, i int, quotes map[string]clob.SidePrices) string {
	if i < len(mc.TokenIDs) {
		if q, ok := quotes[mc.TokenIDs[i]]; ok {
			if sell, err := strconv.ParseFloat(q.Sell, 64); err == nil && sell > 0 {
				return fmt.Sprintf("%.3f (Live Orderbook)", sell)
			}
		}
	}
	cached := 0.0
	if i < len(mc.CachedPrices) {
		cached = mc.CachedPrices[i]
	}
	return fmt.Sprintf("%.3f (Cached)", cached)
}

func buildAnalysisPrompt(ev Event, contexts []*marketContext) string {
	type promptMarket struct {
		ID            string   `json:"id"`
		Question      string   `json:"question"`
		Description   string   `json:"description"`
		EndDate       string   `json:"endDate"`
		Liquidity     float64  `json:"liquidity"`
		Volume        float64  `json:"volume"`
		Outcomes      []string `json:"outcomes"`
		OutcomePrices []string `json:"outcomePrices"`
	}
	markets := make([]promptMarket, 0, len(contexts))
	for _, mc := range contexts {
		markets = append(markets, promptMarket{
			ID:            mc.ID,
			Question:      mc.Question,
			Description:   mc.Description,
			EndDate:       mc.EndDate,
			Liquidity:     mc.Liquidity,
			Volume:        mc.Volume,
			Outcomes:      mc.Outcomes,
			OutcomePrices: mc.PriceLabels,
		})
	}
	marketJSON, _ := json.MarshalIndent(markets, "", "  ")

	var sb strings.Builder
	sb.WriteString("You are a professional prediction market analyst. Investigate the event below using web search and identify mispriced outcomes.\n\n")
	sb.WriteString("Event: ")
	sb.WriteString(ev.Title)
	sb.WriteString("\n")
	if ev.Description != "" {
		sb.WriteString("Description: ")
		sb.WriteString(ev.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("\nMarkets (prices marked \"Live Orderbook\" are current ask quotes; \"Cached\" prices may be stale):\n")
	sb.Write(marketJSON)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Research each market question with current information before judging it.\n")
	sb.WriteString("- aiProbability: your probability for the selected outcome, an integer from 1 to 100.\n")
	sb.WriteString("- marketProbability: the market price you used, as a percentage (the live ask when available).\n")
	sb.WriteString("- confidenceScore: how confident you are in your research, from 1 to 100.\n")
	sb.WriteString("- expectedValue: aiProbability divided by the ask price (as a percentage), minus 1.\n")
	sb.WriteString("- recommendation is always \"BUY\"; only surface outcomes worth buying.\n")
	sb.WriteString("- betSizeUnits: 1 to 10 units scaled by conviction.\n")
	sb.WriteString("- Return an empty opportunities array if nothing is mispriced.\n")
	return sb.String()
}

func analysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
			"opportunities": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"headline":          map[string]any{"type": "string"},
						"selectedMarketId":  map[string]any{"type": "string"},
						"selectedOutcome":   map[string]any{"type": "string"},
						"marketQuestion":    map[string]any{"type": "string"},
						"aiProbability":     map[string]any{"type": "number"},
						"marketProbability": map[string]any{"type": "number"},
						"confidenceScore":   map[string]any{"type": "number"},
						"expectedValue":     map[string]any{"type": "number"},
						"recommendation":    map[string]any{"type": "string"},
						"betSizeUnits":      map[string]any{"type": "number"},
						"reasoning":         map[string]any{"type": "string"},
					},
					"required": []string{
						"headline", "selectedMarketId", "selectedOutcome", "marketQuestion",
						"aiProbability", "marketProbability", "confidenceScore",
						"expectedValue", "recommendation", "betSizeUnits", "reasoning",
					},
				},
			},
		},
		"required": []string{"summary", "opportunities"},
	}
}

type analysisResponse struct {
	Summary       string        `json:"summary"`
	Opportunities []Opportunity `json:"opportunities"`
}

func parseAnalysisResponse(text string) (analysisResponse, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	var out analysisResponse
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return analysisResponse{}, err
	}
	return out, nil
}

func opportunitiesForMarket(all []Opportunity, marketID string) []Opportunity {
	out := make([]Opportunity, 0)
	for _, op := range all {
		if op.SelectedMarketID == marketID {
			out = append(out, op)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
