package repository

import (
	"context"
	"errors"
	"time"

	"grievance/internal/model"
	"grievance/pkg/apperr"
	"grievance/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ComplaintFilter narrows complaint listings.
type ComplaintFilter struct {
	Status       string
	DistrictCode string
	OfficerID    *uuid.UUID
	CitizenID    *uuid.UUID
}

// StatusCategoryCounts holds grouped complaint counts for the snapshot
// aggregator.
type StatusCategoryCounts struct {
	Total      int64
	ByStatus   map[string]int64
	ByCategory map[string]int64
}

type ComplaintRepository interface {
	Create(ctx context.Context, complaint *model.Complaint) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Complaint, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Complaint, error)
	// UpdateVersioned persists the complaint only if its version column
	// still matches the version it was read at; a lost race yields Conflict.
	UpdateVersioned(ctx context.Context, complaint *model.Complaint) error
	List(ctx context.Context, filter ComplaintFilter, p pagination.Params) ([]model.Complaint, int64, error)
	NextCodeSequence(ctx context.Context, prefix string) (int64, error)
	CountByVillageCodes(ctx context.Context, villageCodes []string, until time.Time) (*StatusCategoryCounts, error)
	CreateNote(ctx context.Context, note *model.ComplaintNote) error
	ListNotes(ctx context.Context, complaintID uuid.UUID) ([]model.ComplaintNote, error)
}

type complaintRepository struct {
	db *gorm.DB
}

func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

func (r *complaintRepository) Create(ctx context.Context, complaint *model.Complaint) error {
	return GetDB(ctx, r.db).Create(complaint).Error
}

func (r *complaintRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Complaint, error) {
	var complaint model.Complaint
	if err := GetDB(ctx, r.db).First(&complaint, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "complaint not found", err)
		}
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Complaint, error) {
	var complaint model.Complaint
	if err := GetDB(ctx, r.db).
		Preload("Citizen").
		Preload("Officer").
		First(&complaint, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "complaint not found", err)
		}
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) UpdateVersioned(ctx context.Context, complaint *model.Complaint) error {
	expected := complaint.Version
	complaint.Version = expected + 1

	res := GetDB(ctx, r.db).Model(complaint).
		Where("version = ?", expected).
		Select("*").Omit("created_at").
		Updates(complaint)
	if res.Error != nil {
		complaint.Version = expected
		return res.Error
	}
	if res.RowsAffected == 0 {
		complaint.Version = expected
		return apperr.New(apperr.KindConflict, "complaint was modified concurrently")
	}
	return nil
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter, p pagination.Params) ([]model.Complaint, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.Complaint{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DistrictCode != "" {
		query = query.Where("district_code = ?", filter.DistrictCode)
	}
	if filter.OfficerID != nil {
		query = query.Where("officer_id = ?", *filter.OfficerID)
	}
	if filter.CitizenID != nil {
		query = query.Where("citizen_id = ?", *filter.CitizenID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var complaints []model.Complaint
	if err := query.
		Preload("Citizen").
		Preload("Officer").
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&complaints).Error; err != nil {
		return nil, 0, err
	}

	return complaints, total, nil
}

// NextCodeSequence increments the counter row for a day prefix and
// returns the new value. The upsert row-locks the counter, so two
// same-day creates serialize here instead of racing each other onto
// the unique complaint_code index.
func (r *complaintRepository) NextCodeSequence(ctx context.Context, prefix string) (int64, error) {
	db := GetDB(ctx, r.db)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prefix"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("code_counters.value + 1")}),
	}).Create(&model.CodeCounter{Prefix: prefix, Value: 1}).Error
	if err != nil {
		return 0, err
	}

	var counter model.CodeCounter
	if err := db.First(&counter, "prefix = ?", prefix).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (r *complaintRepository) CountByVillageCodes(ctx context.Context, villageCodes []string, until time.Time) (*StatusCategoryCounts, error) {
	db := GetDB(ctx, r.db)
	counts := &StatusCategoryCounts{
		ByStatus:   make(map[string]int64),
		ByCategory: make(map[string]int64),
	}

	if len(villageCodes) == 0 {
		return counts, nil
	}

	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&model.Complaint{}).
		Select("status, COUNT(*) as count").
		Where("village_code IN ? AND created_at <= ?", villageCodes, until).
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return nil, err
	}
	for _, row := range statusRows {
		counts.ByStatus[row.Status] = row.Count
		counts.Total += row.Count
	}

	var categoryRows []struct {
		Category string
		Count    int64
	}
	if err := db.Model(&model.Complaint{}).
		Select("category, COUNT(*) as count").
		Where("village_code IN ? AND created_at <= ?", villageCodes, until).
		Group("category").
		Scan(&categoryRows).Error; err != nil {
		return nil, err
	}
	for _, row := range categoryRows {
		counts.ByCategory[row.Category] = row.Count
	}

	return counts, nil
}

func (r *complaintRepository) CreateNote(ctx context.Context, note *model.ComplaintNote) error {
	return GetDB(ctx, r.db).Create(note).Error
}

func (r *complaintRepository) ListNotes(ctx context.Context, complaintID uuid.UUID) ([]model.ComplaintNote, error) {
	var notes []model.ComplaintNote
	if err := GetDB(ctx, r.db).
		Preload("Author").
		Where("complaint_id = ?", complaintID).
		Order("created_at ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
