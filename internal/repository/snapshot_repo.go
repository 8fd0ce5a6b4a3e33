package repository

import (
	"context"
	"errors"
	"time"

	"grievance/internal/model"
	"grievance/pkg/pagination"

	"gorm.io/gorm"
)

type SnapshotRepository interface {
	// Create appends a snapshot row. There is deliberately no uniqueness
	// check on (entity, period, date): duplicate rows form a history of
	// corrections and readers take the newest.
	Create(ctx context.Context, snapshot *model.ComplaintSnapshot) error
	FindLatestAt(ctx context.Context, entityType, entityCode, period string, asOf time.Time) (*model.ComplaintSnapshot, error)
	FindLatestBefore(ctx context.Context, entityType, entityCode, period string, before time.Time) (*model.ComplaintSnapshot, error)
	List(ctx context.Context, entityType, entityCode, period string, p pagination.Params) ([]model.ComplaintSnapshot, int64, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Create(ctx context.Context, snapshot *model.ComplaintSnapshot) error {
	return GetDB(ctx, r.db).Create(snapshot).Error
}

// FindLatestAt returns the most recent snapshot with snapshot_date <= asOf.
// Among duplicate rows for one date the newest insertion wins.
func (r *snapshotRepository) FindLatestAt(ctx context.Context, entityType, entityCode, period string, asOf time.Time) (*model.ComplaintSnapshot, error) {
	var snapshot model.ComplaintSnapshot
	err := GetDB(ctx, r.db).
		Where("entity_type = ? AND entity_code = ? AND period = ? AND snapshot_date <= ?",
			entityType, entityCode, period, asOf).
		Order("snapshot_date DESC").
		Order("created_at DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// FindLatestBefore returns the most recent snapshot strictly before the
// given date, or nil when no prior snapshot exists.
func (r *snapshotRepository) FindLatestBefore(ctx context.Context, entityType, entityCode, period string, before time.Time) (*model.ComplaintSnapshot, error) {
	var snapshot model.ComplaintSnapshot
	err := GetDB(ctx, r.db).
		Where("entity_type = ? AND entity_code = ? AND period = ? AND snapshot_date < ?",
			entityType, entityCode, period, before).
		Order("snapshot_date DESC").
		Order("created_at DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepository) List(ctx context.Context, entityType, entityCode, period string, p pagination.Params) ([]model.ComplaintSnapshot, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.ComplaintSnapshot{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if entityCode != "" {
		query = query.Where("entity_code = ?", entityCode)
	}
	if period != "" {
		query = query.Where("period = ?", period)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var snapshots []model.ComplaintSnapshot
	if err := query.
		Order("snapshot_date DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&snapshots).Error; err != nil {
		return nil, 0, err
	}

	return snapshots, total, nil
}
