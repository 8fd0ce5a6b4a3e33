package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lifecycle event type constants. Every committed state mutation writes
// exactly one of these.
const (
	EventComplaintCreated       = "complaint_created"
	EventComplaintAssigned      = "complaint_assigned"
	EventComplaintReassigned    = "complaint_reassigned"
	EventComplaintStatusChanged = "complaint_status_changed"
	EventComplaintClosed        = "complaint_closed"
	EventExtensionRequested     = "extension_requested"
	EventExtensionDecided       = "extension_decided"
)

// LifecycleEvent is the append-only record of a committed transition,
// consumed by the downstream notification path. Events for the same
// complaint are strictly ordered by CreatedAt.
type LifecycleEvent struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EventType   string     `gorm:"type:varchar(40);not null;index" json:"event_type"`
	ComplaintID uuid.UUID  `gorm:"type:uuid;not null;index" json:"complaint_id"`
	ActorID     *uuid.UUID `gorm:"type:uuid" json:"actor_id"` // nil for system-originated transitions
	Payload     string     `gorm:"type:jsonb" json:"payload"` // old/new values relevant to the transition
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (e *LifecycleEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
