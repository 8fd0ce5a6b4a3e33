package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Complaint status enum constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

// Complaint priority enum constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// DefaultTimeBoundaryDays is the SLA window granted to an officer when
// a complaint is created without an explicit boundary.
const DefaultTimeBoundaryDays = 7

// Complaint is the central grievance record. Status and the closing
// fields are mutated only through the complaint service so the legal
// lifecycle graph (pending → in_progress → resolved/rejected) holds.
type Complaint struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintCode string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"complaint_code"`

	Category    string `gorm:"type:varchar(100);not null;index" json:"category"`
	SubCategory string `gorm:"type:varchar(100)" json:"sub_category"`
	Priority    string `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Status      string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	Subject     string `gorm:"type:varchar(255);not null" json:"subject"`
	Description string `gorm:"type:text" json:"description"`

	CitizenID    *uuid.UUID `gorm:"type:uuid;index" json:"citizen_id"`
	Citizen      *User      `gorm:"foreignKey:CitizenID" json:"citizen,omitempty"`
	ContactName  string     `gorm:"type:varchar(255);not null" json:"contact_name"`
	ContactPhone string     `gorm:"type:varchar(20);not null" json:"contact_phone"`

	DistrictCode    string `gorm:"type:varchar(20);not null;index" json:"district_code"`
	SubdistrictCode string `gorm:"type:varchar(20);not null;index" json:"subdistrict_code"`
	VillageCode     string `gorm:"type:varchar(20);not null;index" json:"village_code"`

	OfficerID         *uuid.UUID `gorm:"type:uuid;index" json:"officer_id"`
	Officer           *User      `gorm:"foreignKey:OfficerID" json:"officer,omitempty"`
	IsOfficerAssigned bool       `gorm:"not null;default:false" json:"is_officer_assigned"`
	ArrivalTime       time.Time  `gorm:"not null" json:"arrival_time"`
	AssignedTime      *time.Time `json:"assigned_time"`

	TimeBoundary int  `gorm:"not null;default:7" json:"time_boundary"`
	IsExtended   bool `gorm:"not null;default:false" json:"is_extended"`

	IsClosed           bool       `gorm:"not null;default:false" json:"is_closed"`
	ClosedAt           *time.Time `json:"closed_at"`
	ClosedBy           *uuid.UUID `gorm:"type:uuid" json:"closed_by"`
	ClosingRemarks     string     `gorm:"type:text" json:"closing_remarks,omitempty"`
	ProofReference     string     `gorm:"type:varchar(500)" json:"proof_reference,omitempty"`
	ClosingAttachments string     `gorm:"type:jsonb" json:"closing_attachments,omitempty"`

	// Version backs the optimistic concurrency check: every mutation
	// requires the version it read, so racing writers lose with Conflict.
	Version int `gorm:"not null;default:1" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Deadline derives the SLA deadline from AssignedTime and TimeBoundary.
// It is never stored, so it can never diverge from its inputs.
// The second return is false while the complaint is unassigned.
func (c *Complaint) Deadline() (time.Time, bool) {
	if c.AssignedTime == nil {
		return time.Time{}, false
	}
	return c.AssignedTime.Add(time.Duration(c.TimeBoundary) * 24 * time.Hour), true
}

// IsOverdue reports whether the complaint has blown its deadline at the
// given instant. Closed and unassigned complaints are never overdue.
func (c *Complaint) IsOverdue(now time.Time) bool {
	deadline, ok := c.Deadline()
	if !ok || c.IsClosed {
		return false
	}
	return now.After(deadline)
}

// ComplaintNote is a free-form remark an officer or admin attaches to a
// complaint while working it.
type ComplaintNote struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID uuid.UUID `gorm:"type:uuid;not null;index" json:"complaint_id"`
	AuthorID    uuid.UUID `gorm:"type:uuid;not null" json:"author_id"`
	Author      *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (n *ComplaintNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// CodeCounter backs complaint code generation. One row per day prefix,
// incremented inside the creating transaction so concurrent creates
// cannot mint the same code.
type CodeCounter struct {
	Prefix string `gorm:"type:varchar(20);primaryKey" json:"prefix"`
	Value  int64  `gorm:"not null" json:"value"`
}

// IsValidStatus reports whether s is a known complaint status.
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// IsValidPriority reports whether p is a known priority level.
func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
