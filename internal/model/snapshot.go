package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Geographic entity type constants
const (
	EntityDistrict    = "district"
	EntitySubdistrict = "subdistrict"
	EntityVillage     = "village"
)

// Snapshot period constants
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Trend direction constants
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// ComplaintSnapshot is an immutable point-in-time rollup of complaint
// counts for one geographic entity and period. Rows are append-only;
// multiple rows per (entity, period, date) key are allowed and read as
// a history of corrections, newest wins.
type ComplaintSnapshot struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType     string    `gorm:"type:varchar(20);not null;index" json:"entity_type"`
	EntityCode     string    `gorm:"type:varchar(20);not null;index" json:"entity_code"`
	EntityName     string    `gorm:"type:varchar(255)" json:"entity_name"`
	SnapshotDate   time.Time `gorm:"not null;index" json:"snapshot_date"`
	Period         string    `gorm:"type:varchar(10);not null;index" json:"period"`
	TotalCount     int64     `gorm:"not null" json:"total_count"`
	StatusCounts   string    `gorm:"type:jsonb" json:"status_counts"`
	CategoryCounts string    `gorm:"type:jsonb" json:"category_counts"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (s *ComplaintSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TrendComparison is the result of comparing the snapshot at a date
// against the most recent prior snapshot for the same key.
type TrendComparison struct {
	EntityType    string          `json:"entity_type"`
	EntityCode    string          `json:"entity_code"`
	Period        string          `json:"period"`
	AsOf          time.Time       `json:"as_of"`
	Current       int64           `json:"current"`
	Previous      int64           `json:"previous"`
	Change        int64           `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Trend         string          `json:"trend"`
}

// IsValidEntityType reports whether t is a known geographic entity type.
func IsValidEntityType(t string) bool {
	switch t {
	case EntityDistrict, EntitySubdistrict, EntityVillage:
		return true
	}
	return false
}

// IsValidPeriod reports whether p is a known snapshot period.
func IsValidPeriod(p string) bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}
