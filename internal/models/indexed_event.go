package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// IndexedEvent is one Polymarket event captured by the indexer. The full
// normalized payload lives in EventData; the scalar columns are denormalized
// copies kept for querying, plus the scoring/analysis pipeline metadata.
type IndexedEvent struct {
	ID                  string           `gorm:"primaryKey;type:text"`
	Slug                string           `gorm:"type:text;index"`
	Active              bool             `gorm:"not null;default:true"`
	Closed              bool             `gorm:"not null;default:false"`
	EndDate             *time.Time       `gorm:"type:timestamptz;index"`
	Liquidity           *decimal.Decimal `gorm:"type:numeric(30,10)"`
	Volume              *decimal.Decimal `gorm:"type:numeric(30,10)"`
	EventData           datatypes.JSON   `gorm:"type:jsonb;not null"`
	PredictabilityScore *int             `gorm:"index"`
	LastScoredAt        *time.Time       `gorm:"type:timestamptz"`
	IsAnalyzed          *bool            `gorm:"index"`
	AnalyzedAt          *time.Time       `gorm:"type:timestamptz"`
	FirstIndexedAt      time.Time        `gorm:"type:timestamptz;not null"`
	LastSeenAt          time.Time        `gorm:"type:timestamptz;not null"`
}

func (IndexedEvent) TableName() string {
	return "indexed_events"
}
