package repository

import (
	"context"
	"errors"

	"grievance/internal/model"
	"grievance/pkg/apperr"
	"grievance/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExtensionRepository interface {
	Create(ctx context.Context, req *model.ExtensionRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ExtensionRequest, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ExtensionRequest, error)
	// FindPendingByComplaint returns all pending requests for a complaint,
	// oldest first. More than one row is a data-integrity violation the
	// caller must surface, not repair.
	FindPendingByComplaint(ctx context.Context, complaintID uuid.UUID) ([]model.ExtensionRequest, error)
	// UpdateDecision persists a decision only while the row is still
	// pending; a lost race yields Conflict so a committed decision can
	// never be overwritten.
	UpdateDecision(ctx context.Context, req *model.ExtensionRequest) error
	List(ctx context.Context, complaintID *uuid.UUID, status string, p pagination.Params) ([]model.ExtensionRequest, int64, error)
}

type extensionRepository struct {
	db *gorm.DB
}

func NewExtensionRepository(db *gorm.DB) ExtensionRepository {
	return &extensionRepository{db: db}
}

func (r *extensionRepository) Create(ctx context.Context, req *model.ExtensionRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *extensionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ExtensionRequest, error) {
	var req model.ExtensionRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "extension request not found", err)
		}
		return nil, err
	}
	return &req, nil
}

func (r *extensionRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.ExtensionRequest, error) {
	var req model.ExtensionRequest
	if err := GetDB(ctx, r.db).
		Preload("Requester").
		Preload("Decider").
		First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "extension request not found", err)
		}
		return nil, err
	}
	return &req, nil
}

func (r *extensionRepository) FindPendingByComplaint(ctx context.Context, complaintID uuid.UUID) ([]model.ExtensionRequest, error) {
	var requests []model.ExtensionRequest
	if err := GetDB(ctx, r.db).
		Where("complaint_id = ? AND status = ?", complaintID, model.ExtensionPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *extensionRepository) UpdateDecision(ctx context.Context, req *model.ExtensionRequest) error {
	res := GetDB(ctx, r.db).Model(req).
		Where("status = ?", model.ExtensionPending).
		Select("*").Omit("created_at").
		Updates(req)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindConflict, "extension request was already decided")
	}
	return nil
}

func (r *extensionRepository) List(ctx context.Context, complaintID *uuid.UUID, status string, p pagination.Params) ([]model.ExtensionRequest, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.ExtensionRequest{})
	if complaintID != nil {
		query = query.Where("complaint_id = ?", *complaintID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var requests []model.ExtensionRequest
	if err := query.
		Preload("Requester").
		Preload("Decider").
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}
