package models

import (
	"time"

	"gorm.io/datatypes"
)

// MarketAnalysis is one AI analysis row per (event, market) pair. Rows are
// insert-only; AnalysisData carries the summary, grounding sources and the
// opportunity records for that market.
type MarketAnalysis struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement"`
	EventID      string         `gorm:"type:text;index;not null"`
	MarketID     string         `gorm:"type:text;index;not null"`
	Dropped      bool           `gorm:"not null;default:false"`
	AnalysisData datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time      `gorm:"type:timestamptz;not null"`
}

func (MarketAnalysis) TableName() string {
	return "market_analyses"
}
