package repository

import (
	"context"
	"time"

	"nukefarm/internal/models"
)

// Repository is the storage surface used by the indexing, scoring and
// analysis pipelines plus the read-only HTTP handlers.
type Repository interface {
	// UpsertIndexedEvents writes a batch in one transaction. With
	// overwrite=false existing rows are left untouched (first payload wins);
	// with overwrite=true the denormalized columns and the event blob are
	// refreshed. Pipeline metadata columns are never written by upsert.
	UpsertIndexedEvents(ctx context.Context, rows []models.IndexedEvent, overwrite bool) error

	// ListEventsNeedingScore returns up to limit rows whose score is unset or
	// whose last_scored_at is older than staleBefore.
	ListEventsNeedingScore(ctx context.Context, limit int, staleBefore time.Time) ([]models.IndexedEvent, error)

	// UpdateEventScore sets the predictability score and scoring timestamp on
	// one row. Returns the number of rows affected; 0 is not an error.
	UpdateEventScore(ctx context.Context, id string, score int, scoredAt time.Time) (int64, error)

	// ListUnanalyzedEvents returns up to limit rows where is_analyzed is null
	// or false.
	ListUnanalyzedEvents(ctx context.Context, limit int) ([]models.IndexedEvent, error)

	// MarkEventAnalyzed flags one row analyzed with the given timestamp.
	// Returns the number of rows affected; 0 is not an error.
	MarkEventAnalyzed(ctx context.Context, id string, analyzedAt time.Time) (int64, error)

	InsertMarketAnalyses(ctx context.Context, rows []models.MarketAnalysis) error

	ListEvents(ctx context.Context, params ListEventsParams) ([]models.IndexedEvent, error)
	CountEvents(ctx context.Context, params ListEventsParams) (int64, error)
	GetEventByID(ctx context.Context, id string) (*models.IndexedEvent, error)
	ListAnalysesByEventID(ctx context.Context, eventID string) ([]models.MarketAnalysis, error)
}

type ListEventsParams struct {
	Limit    int
	Offset   int
	Active   *bool
	Closed   *bool
	Analyzed *bool
	Scored   *bool
	MinScore *int
	OrderBy  string
	Asc      *bool
}
