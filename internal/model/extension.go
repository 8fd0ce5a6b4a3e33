package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExtensionRequest status enum constants
const (
	ExtensionPending  = "pending"
	ExtensionApproved = "approved"
	ExtensionRejected = "rejected"
)

// ExtensionRequest is an officer's plea for more time on a complaint.
// At most one pending request may exist per complaint; only an admin
// decides, and an approval adds DaysRequested to the complaint's
// time boundary.
type ExtensionRequest struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"complaint_id"`
	Complaint     *Complaint `gorm:"foreignKey:ComplaintID" json:"complaint,omitempty"`
	RequestedBy   uuid.UUID  `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester     *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	RequesterRole string     `gorm:"type:varchar(20);not null" json:"requester_role"`
	DaysRequested int        `gorm:"not null" json:"days_requested"`
	Reason        string     `gorm:"type:text;not null" json:"reason"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DecidedBy     *uuid.UUID `gorm:"type:uuid" json:"decided_by"`
	Decider       *User      `gorm:"foreignKey:DecidedBy" json:"decider,omitempty"`
	DecidedAt     *time.Time `json:"decided_at"`
	DecisionNotes string     `gorm:"type:text" json:"decision_notes"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *ExtensionRequest) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
