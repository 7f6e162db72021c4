package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"nukefarm/internal/client/polymarket/gamma"
	"nukefarm/internal/config"
	"nukefarm/internal/models"
	"nukefarm/internal/repository"
)

// EventSource delivers one raw listing page.
type EventSource interface {
	GetEvents(ctx context.Context, offset, limit int) ([]gamma.Event, error)
}

// Indexer runs one fetch→filter→normalize→upsert pass per page. Cursor
// management (offset advancement, retry and idle timing) belongs to the
// daemon loop.
type Indexer struct {
	Source EventSource
	Repo   repository.Repository
	Config config.IndexerConfig
	Logger *zap.Logger
}

// RunBatch processes the page at offset. more=false means the listing is
// exhausted. Errors go back to the caller; the same offset is retried.
func (ix *Indexer) RunBatch(ctx context.Context, offset int) (more bool, err error) {
	pageSize := ix.Config.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	events, err := ix.Source.GetEvents(ctx, offset, pageSize)
	if err != nil {
		return false, fmt.Errorf("fetch events page: %w", err)
	}
	if len(events) == 0 {
		return false, nil
	}

	kept := FilterEvents(events)
	now := time.Now().UTC()
	rows := make([]models.IndexedEvent, 0, len(kept))
	for _, raw := range kept {
		ev, err := Normalize(raw)
		if err != nil {
			ix.Logger.Warn("quarantined invalid event", zap.String("slug", raw.Slug), zap.Error(err))
			continue
		}
		row, err := buildIndexedEvent(ev, now)
		if err != nil {
			ix.Logger.Warn("failed to encode event", zap.String("event_id", ev.ID), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		if err := ix.Repo.UpsertIndexedEvents(ctx, rows, ix.Config.OverwriteDuplicates); err != nil {
			return false, fmt.Errorf("upsert indexed events: %w", err)
		}
	}
	ix.Logger.Info("indexed events page",
		zap.Int("offset", offset),
		zap.Int("fetched", len(events)),
		zap.Int("kept", len(rows)))
	return true, nil
}

func buildIndexedEvent(ev Event, now time.Time) (models.IndexedEvent, error) {
	blob, err := json.Marshal(ev)
	if err != nil {
		return models.IndexedEvent{}, err
	}
	row := models.IndexedEvent{
		ID:             ev.ID,
		Slug:           ev.Slug,
		Active:         ev.Active,
		Closed:         ev.Closed,
		EventData:      datatypes.JSON(blob),
		FirstIndexedAt: now,
		LastSeenAt:     now,
	}
	if end, ok := parseEndDate(ev.EndDate); ok {
		row.EndDate = &end
	}
	liq := decimal.NewFromFloat(ev.Liquidity)
	vol := decimal.NewFromFloat(ev.Volume)
	row.Liquidity = &liq
	row.Volume = &vol
	return row, nil
}
