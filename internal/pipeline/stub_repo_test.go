package pipeline

import (
	"context"
	"sort"
	"time"

	"nukefarm/internal/models"
	"nukefarm/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
type stubRepo struct {
	events   map[string]models.IndexedEvent
	analyses []models.MarketAnalysis

	upsertCalls   int
	lastOverwrite bool
	upsertErr     error
	listErr       error
	scoreErr      error
	insertErr     error
	markErr       error
}

func newStubRepo() *stubRepo {
	return &stubRepo{events: map[string]models.IndexedEvent{}}
}

func (s *stubRepo) UpsertIndexedEvents(ctx context.Context, rows []models.IndexedEvent, overwrite bool) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upsertCalls++
	s.lastOverwrite = overwrite
	for _, row := range rows {
		existing, ok := s.events[row.ID]
		if !ok {
			s.events[row.ID] = row
			continue
		}
		if overwrite {
			existing.Slug = row.Slug
			existing.Active = row.Active
			existing.Closed = row.Closed
			existing.EndDate = row.EndDate
			existing.Liquidity = row.Liquidity
			existing.Volume = row.Volume
			existing.EventData = row.EventData
			existing.LastSeenAt = row.LastSeenAt
			s.events[row.ID] = existing
		}
	}
	return nil
}

func (s *stubRepo) ListEventsNeedingScore(ctx context.Context, limit int, staleBefore time.Time) ([]models.IndexedEvent, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.IndexedEvent, 0)
	for _, ev := range s.sortedEvents() {
		if ev.PredictabilityScore == nil || ev.LastScoredAt == nil || ev.LastScoredAt.Before(staleBefore) {
			out = append(out, ev)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateEventScore(ctx context.Context, id string, score int, scoredAt time.Time) (int64, error) {
	if s.scoreErr != nil {
		return 0, s.scoreErr
	}
	ev, ok := s.events[id]
	if !ok {
		return 0, nil
	}
	ev.PredictabilityScore = &score
	ev.LastScoredAt = &scoredAt
	s.events[id] = ev
	return 1, nil
}

func (s *stubRepo) ListUnanalyzedEvents(ctx context.Context, limit int) ([]models.IndexedEvent, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.IndexedEvent, 0)
	for _, ev := range s.sortedEvents() {
		if ev.IsAnalyzed == nil || !*ev.IsAnalyzed {
			out = append(out, ev)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) MarkEventAnalyzed(ctx context.Context, id string, analyzedAt time.Time) (int64, error) {
	if s.markErr != nil {
		return 0, s.markErr
	}
	ev, ok := s.events[id]
	if !ok {
		return 0, nil
	}
	analyzed := true
	ev.IsAnalyzed = &analyzed
	ev.AnalyzedAt = &analyzedAt
	s.events[id] = ev
	return 1, nil
}

func (s *stubRepo) InsertMarketAnalyses(ctx context.Context, rows []models.MarketAnalysis) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.analyses = append(s.analyses, rows...)
	return nil
}

func (s *stubRepo) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.IndexedEvent, error) {
	return s.sortedEvents(), nil
}

func (s *stubRepo) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	return int64(len(s.events)), nil
}

func (s *stubRepo) GetEventByID(ctx context.Context, id string) (*models.IndexedEvent, error) {
	ev, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (s *stubRepo) ListAnalysesByEventID(ctx context.Context, eventID string) ([]models.MarketAnalysis, error) {
	out := make([]models.MarketAnalysis, 0)
	for _, a := range s.analyses {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubRepo) sortedEvents() []models.IndexedEvent {
	out := make([]models.IndexedEvent, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
