package repository

import (
	"context"

	"grievance/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.LifecycleEvent) error
	ListByComplaint(ctx context.Context, complaintID uuid.UUID) ([]model.LifecycleEvent, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *model.LifecycleEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func (r *eventRepository) ListByComplaint(ctx context.Context, complaintID uuid.UUID) ([]model.LifecycleEvent, error) {
	var events []model.LifecycleEvent
	if err := GetDB(ctx, r.db).
		Where("complaint_id = ?", complaintID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
