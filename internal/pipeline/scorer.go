package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nukefarm/internal/client/chaingpt"
	"nukefarm/internal/config"
	"nukefarm/internal/models"
	"nukefarm/internal/repository"
)

// ScoreClient produces per-event predictability scores from one batch prompt.
type ScoreClient interface {
	ScoreEvents(ctx context.Context, prompt string) map[string]chaingpt.EventScore
}

// Scorer assigns predictability scores to indexed events in batches. Stale
// scores (older than the freshness window) are rescored.
type Scorer struct {
	Repo   repository.Repository
	AI     ScoreClient
	Config config.ScorerConfig
	Logger *zap.Logger
}

// RunBatch scores at most one batch. worked=true for any non-empty batch,
// even when the AI stored nothing: rows the AI skipped keep their null score
// and come back on a later pass.
func (s *Scorer) RunBatch(ctx context.Context) (worked bool, err error) {
	selected, _, err := s.runBatch(ctx)
	return selected > 0, err
}

func (s *Scorer) runBatch(ctx context.Context) (selected, updated int, err error) {
	batch := s.Config.BatchSize
	if batch <= 0 || batch > 25 {
		batch = 25
	}
	window := s.Config.FreshnessWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	staleBefore := time.Now().UTC().Add(-window)
	rows, err := s.Repo.ListEventsNeedingScore(ctx, batch, staleBefore)
	if err != nil {
		return 0, 0, fmt.Errorf("list events needing score: %w", err)
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}

	scores := s.AI.ScoreEvents(ctx, buildScoringPrompt(rows))
	now := time.Now().UTC()
	for _, row := range rows {
		sc, ok := scores[row.ID]
		if !ok || sc.Score == nil {
			continue
		}
		affected, err := s.Repo.UpdateEventScore(ctx, row.ID, *sc.Score, now)
		if err != nil {
			s.Logger.Warn("failed to store score", zap.String("event_id", row.ID), zap.Error(err))
			continue
		}
		if affected == 0 {
			s.Logger.Warn("score update matched no row", zap.String("event_id", row.ID))
			continue
		}
		updated++
	}
	s.Logger.Info("scored events batch", zap.Int("selected", len(rows)), zap.Int("updated", updated))
	return len(rows), updated, nil
}

// Drain runs batches until no event needs a score, pausing between batches.
// A round that selects rows but stores no score ends the drain: those rows
// would be reselected immediately, and a failing AI must not trap the loop.
func (s *Scorer) Drain(ctx context.Context) error {
	for {
		selected, updated, err := s.runBatch(ctx)
		if err != nil {
			return err
		}
		if selected == 0 {
			return nil
		}
		if updated == 0 {
			s.Logger.Warn("no scores stored this round, ending drain", zap.Int("selected", selected))
			return nil
		}
		if err := sleepCtx(ctx, s.Config.BatchDelay); err != nil {
			return err
		}
	}
}

func buildScoringPrompt(rows []models.IndexedEvent) string {
	var sb strings.Builder
	sb.WriteString("You are an expert prediction market analyst. For each event below, assign an integer predictability score between 0 and 99 measuring how predictable its outcome is with public information today.\n\n")
	sb.WriteString("Scoring guidance:\n")
	sb.WriteString("- Use the full range and avoid defaulting to multiples of 10.\n")
	sb.WriteString("- 11-28: genuinely uncertain outcomes, close to a coin toss.\n")
	sb.WriteString("- 62-84: outcomes with clear momentum, strong priors, or reliable leading indicators.\n")
	sb.WriteString("- Reserve scores above 90 for near-certainties.\n\n")
	sb.WriteString("Respond ONLY with a JSON object keyed by event id. Each value must be an object with \"title\" (the event title echoed back) and \"score\" (the integer, or null if you cannot judge).\n\nEvents:\n")
	for _, row := range rows {
		sb.WriteString(row.ID)
		sb.WriteString(": ")
		sb.WriteString(eventTitle(row))
		sb.WriteString("\n")
	}
	return sb.String()
}

// eventTitle pulls the title out of the stored event blob.
func eventTitle(row models.IndexedEvent) string {
	var ev struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(row.EventData, &ev); err != nil {
		return ""
	}
	return ev.Title
}
