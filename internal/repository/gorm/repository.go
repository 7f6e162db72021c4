package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nukefarm/internal/models"
	"nukefarm/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertIndexedEvents(ctx context.Context, rows []models.IndexedEvent, overwrite bool) error {
	if s == nil || s.db == nil || len(rows) == 0 {
		return nil
	}
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}
	if overwrite {
		conflict = clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"slug",
				"active",
				"closed",
				"end_date",
				"liquidity",
				"volume",
				"event_data",
				"last_seen_at",
			}),
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(conflict).CreateInBatches(rows, 200).Error
	})
}

func (s *Store) ListEventsNeedingScore(ctx context.Context, limit int, staleBefore time.Time) ([]models.IndexedEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 25)
	var items []models.IndexedEvent
	err := s.db.WithContext(ctx).
		Model(&models.IndexedEvent{}).
		Where("predictability_score IS NULL OR last_scored_at IS NULL OR last_scored_at < ?", staleBefore).
		Order("last_scored_at ASC NULLS FIRST").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateEventScore(ctx context.Context, id string, score int, scoredAt time.Time) (int64, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.IndexedEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"predictability_score": score,
			"last_scored_at":       scoredAt,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) ListUnanalyzedEvents(ctx context.Context, limit int) ([]models.IndexedEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.IndexedEvent
	err := s.db.WithContext(ctx).
		Model(&models.IndexedEvent{}).
		Where("is_analyzed IS NULL OR is_analyzed = ?", false).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkEventAnalyzed(ctx context.Context, id string, analyzedAt time.Time) (int64, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.IndexedEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_analyzed": true,
			"analyzed_at": analyzedAt,
		})
	return res.RowsAffected, res.Error
}

func (s *Store) InsertMarketAnalyses(ctx context.Context, rows []models.MarketAnalysis) error {
	if s == nil || s.db == nil || len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 200).Error
	})
}

func (s *Store) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.IndexedEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyEventFilters(s.db.WithContext(ctx).Model(&models.IndexedEvent{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "last_seen_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.IndexedEvent
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountEvents(ctx context.Context, params repository.ListEventsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.applyEventFilters(s.db.WithContext(ctx).Model(&models.IndexedEvent{}), params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetEventByID(ctx context.Context, id string) (*models.IndexedEvent, error) {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil, nil
	}
	var item models.IndexedEvent
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAnalysesByEventID(ctx context.Context, eventID string) ([]models.MarketAnalysis, error) {
	if s == nil || s.db == nil || strings.TrimSpace(eventID) == "" {
		return nil, nil
	}
	var items []models.MarketAnalysis
	err := s.db.WithContext(ctx).
		Model(&models.MarketAnalysis{}).
		Where("event_id = ?", eventID).
		Where("dropped = ?", false).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) applyEventFilters(query *gorm.DB, params repository.ListEventsParams) *gorm.DB {
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.Closed != nil {
		query = query.Where("closed = ?", *params.Closed)
	}
	if params.Analyzed != nil {
		if *params.Analyzed {
			query = query.Where("is_analyzed = ?", true)
		} else {
			query = query.Where("is_analyzed IS NULL OR is_analyzed = ?", false)
		}
	}
	if params.Scored != nil {
		if *params.Scored {
			query = query.Where("predictability_score IS NOT NULL")
		} else {
			query = query.Where("predictability_score IS NULL")
		}
	}
	if params.MinScore != nil {
		query = query.Where("predictability_score >= ?", *params.MinScore)
	}
	return query
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
