package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"grievance/internal/model"
	"grievance/internal/repository"
	"grievance/pkg/apperr"
	"grievance/pkg/pagination"

	"github.com/google/uuid"
)

// --- DTOs ---

type AttachmentMeta struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
	StorageRef  string `json:"storage_ref" binding:"required"`
}

type CreateComplaintRequest struct {
	Category        string `json:"category" binding:"required"`
	SubCategory     string `json:"sub_category"`
	Priority        string `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Subject         string `json:"subject" binding:"required"`
	Description     string `json:"description"`
	ContactName     string `json:"contact_name" binding:"required"`
	ContactPhone    string `json:"contact_phone" binding:"required"`
	DistrictCode    string `json:"district_code" binding:"required"`
	SubdistrictCode string `json:"subdistrict_code" binding:"required"`
	VillageCode     string `json:"village_code" binding:"required"`
	TimeBoundary    int    `json:"time_boundary" binding:"omitempty,gt=0"`
}

type CloseComplaintRequest struct {
	Remarks        string           `json:"remarks" binding:"required"`
	ProofReference string           `json:"proof_reference"`
	Attachments    []AttachmentMeta `json:"attachments"`
}

type AddNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

type ComplaintResponse struct {
	ID                string  `json:"id"`
	ComplaintCode     string  `json:"complaint_code"`
	Category          string  `json:"category"`
	SubCategory       string  `json:"sub_category,omitempty"`
	Priority          string  `json:"priority"`
	Status            string  `json:"status"`
	Subject           string  `json:"subject"`
	Description       string  `json:"description,omitempty"`
	ContactName       string  `json:"contact_name"`
	ContactPhone      string  `json:"contact_phone"`
	DistrictCode      string  `json:"district_code"`
	SubdistrictCode   string  `json:"subdistrict_code"`
	VillageCode       string  `json:"village_code"`
	OfficerID         *string `json:"officer_id"`
	OfficerName       string  `json:"officer_name,omitempty"`
	IsOfficerAssigned bool    `json:"is_officer_assigned"`
	ArrivalTime       string  `json:"arrival_time"`
	AssignedTime      *string `json:"assigned_time"`
	TimeBoundary      int     `json:"time_boundary"`
	IsExtended        bool    `json:"is_extended"`
	Deadline          *string `json:"deadline"`
	IsOverdue         bool    `json:"is_overdue"`
	IsClosed          bool    `json:"is_closed"`
	ClosedAt          *string `json:"closed_at"`
	ClosingRemarks    string  `json:"closing_remarks,omitempty"`
	ProofReference    string  `json:"proof_reference,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// --- Interface ---

// ComplaintService is the lifecycle state machine. Every mutation is
// linearized per complaint through an optimistic version check, commits
// together with exactly one lifecycle event, and publishes that event
// to the notification hub after commit.
type ComplaintService interface {
	Create(ctx context.Context, citizenID *uuid.UUID, req CreateComplaintRequest) (*ComplaintResponse, error)
	Get(ctx context.Context, id string) (*ComplaintResponse, error)
	List(ctx context.Context, filter repository.ComplaintFilter, page, limit int) ([]ComplaintResponse, int64, error)
	Assign(ctx context.Context, complaintID, officerID string, actorID uuid.UUID) (*ComplaintResponse, error)
	Reassign(ctx context.Context, complaintID, newOfficerID string, actorID uuid.UUID) (*ComplaintResponse, error)
	SetStatus(ctx context.Context, complaintID, newStatus string, actorID uuid.UUID) (*ComplaintResponse, error)
	Close(ctx context.Context, complaintID string, actorID uuid.UUID, req CloseComplaintRequest) (*ComplaintResponse, error)
	SetPriority(ctx context.Context, complaintID, priority string, actorID uuid.UUID) (*ComplaintResponse, error)
	// ExtendDeadline is invoked by the extension arbiter inside its own
	// transaction; the arbiter's decision event covers the change, so no
	// separate event is recorded here.
	ExtendDeadline(ctx context.Context, complaintID uuid.UUID, days int) error
	IsOverdue(ctx context.Context, complaintID string, now time.Time) (bool, error)
	AddNote(ctx context.Context, complaintID string, authorID uuid.UUID, req AddNoteRequest) (*model.ComplaintNote, error)
	ListNotes(ctx context.Context, complaintID string) ([]model.ComplaintNote, error)
}

type complaintService struct {
	complaintRepo repository.ComplaintRepository
	userRepo      repository.UserRepository
	geoRepo       repository.GeographyRepository
	events        EventService
	txManager     repository.TransactionManager
}

func NewComplaintService(
	complaintRepo repository.ComplaintRepository,
	userRepo repository.UserRepository,
	geoRepo repository.GeographyRepository,
	events EventService,
	txManager repository.TransactionManager,
) ComplaintService {
	return &complaintService{
		complaintRepo: complaintRepo,
		userRepo:      userRepo,
		geoRepo:       geoRepo,
		events:        events,
		txManager:     txManager,
	}
}

// --- Implementation ---

func (s *complaintService) Create(ctx context.Context, citizenID *uuid.UUID, req CreateComplaintRequest) (*ComplaintResponse, error) {
	if req.Category == "" || req.Subject == "" || req.ContactName == "" || req.ContactPhone == "" {
		return nil, apperr.New(apperr.KindValidation, "category, subject and contact fields are required")
	}
	if req.DistrictCode == "" || req.SubdistrictCode == "" || req.VillageCode == "" {
		return nil, apperr.New(apperr.KindValidation, "district, subdistrict and village codes are required")
	}
	if req.Priority != "" && !model.IsValidPriority(req.Priority) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid priority %q", req.Priority)
	}
	if req.TimeBoundary < 0 {
		return nil, apperr.New(apperr.KindValidation, "time boundary must be positive")
	}

	village, err := s.geoRepo.FindByCode(ctx, req.VillageCode)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Newf(apperr.KindValidation, "unknown village code %q", req.VillageCode)
		}
		return nil, err
	}
	if village.Type != model.EntityVillage {
		return nil, apperr.Newf(apperr.KindValidation, "%q is not a village code", req.VillageCode)
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	boundary := req.TimeBoundary
	if boundary == 0 {
		boundary = model.DefaultTimeBoundaryDays
	}

	now := time.Now()
	complaint := &model.Complaint{
		Category:        req.Category,
		SubCategory:     req.SubCategory,
		Priority:        priority,
		Status:          model.StatusPending,
		Subject:         req.Subject,
		Description:     req.Description,
		CitizenID:       citizenID,
		ContactName:     req.ContactName,
		ContactPhone:    req.ContactPhone,
		DistrictCode:    req.DistrictCode,
		SubdistrictCode: req.SubdistrictCode,
		VillageCode:     req.VillageCode,
		ArrivalTime:     now,
		TimeBoundary:    boundary,
		Version:         1,
	}

	var event *model.LifecycleEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		code, codeErr := s.generateComplaintCode(txCtx, now)
		if codeErr != nil {
			return fmt.Errorf("failed to generate complaint code: %w", codeErr)
		}
		complaint.ComplaintCode = code

		if createErr := s.complaintRepo.Create(txCtx, complaint); createErr != nil {
			return fmt.Errorf("failed to create complaint: %w", createErr)
		}

		var recErr error
		event, recErr = s.events.Record(txCtx, model.EventComplaintCreated, complaint.ID, citizenID, map[string]interface{}{
			"complaint_code": complaint.ComplaintCode,
			"status":         complaint.Status,
			"category":       complaint.Category,
			"priority":       complaint.Priority,
			"district_code":  complaint.DistrictCode,
		})
		return recErr
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(event)
	return toComplaintResponse(complaint), nil
}

func (s *complaintService) Get(ctx context.Context, id string) (*ComplaintResponse, error) {
	complaintID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}
	complaint, err := s.complaintRepo.FindByIDWithRelations(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	return toComplaintResponse(complaint), nil
}

func (s *complaintService) List(ctx context.Context, filter repository.ComplaintFilter, page, limit int) ([]ComplaintResponse, int64, error) {
	complaints, total, err := s.complaintRepo.List(ctx, filter, pagination.Normalize(page, limit))
	if err != nil {
		return nil, 0, err
	}

	result := make([]ComplaintResponse, 0, len(complaints))
	for i := range complaints {
		result = append(result, *toComplaintResponse(&complaints[i]))
	}
	return result, total, nil
}

func (s *complaintService) Assign(ctx context.Context, complaintID, officerID string, actorID uuid.UUID) (*ComplaintResponse, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}

	officer, err := s.userRepo.GetByID(ctx, officerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, "officer not found", err)
	}
	if officer.Role != model.RoleOfficer {
		return nil, apperr.Newf(apperr.KindValidation, "user %s is not an officer", officerID)
	}

	var complaint *model.Complaint
	var event *model.LifecycleEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		complaint, findErr = s.complaintRepo.FindByID(txCtx, cid)
		if findErr != nil {
			return findErr
		}

		if complaint.IsClosed {
			return apperr.New(apperr.KindInvalidTransition, "cannot assign a closed complaint")
		}
		if complaint.Status != model.StatusPending || complaint.IsOfficerAssigned {
			return apperr.Newf(apperr.KindInvalidTransition,
				"complaint %s cannot be assigned from status %s", complaint.ComplaintCode, complaint.Status)
		}

		now := time.Now()
		oldStatus := complaint.Status
		complaint.OfficerID = &officer.ID
		complaint.IsOfficerAssigned = true
		complaint.AssignedTime = &now
		complaint.Status = model.StatusInProgress

		if updErr := s.complaintRepo.UpdateVersioned(txCtx, complaint); updErr != nil {
			return updErr
		}

		var recErr error
		event, recErr = s.events.Record(txCtx, model.EventComplaintAssigned, complaint.ID, &actorID, map[string]interface{}{
			"old_status": oldStatus,
			"new_status": complaint.Status,
			"officer_id": officer.ID.String(),
		})
		return recErr
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(event)
	return toComplaintResponse(complaint), nil
}

// Reassign swaps the officer on an in-progress complaint. The SLA clock
// does not restart: AssignedTime stays at the original assignment so a
// reassignment can never push the deadline out.
func (s *complaintService) Reassign(ctx context.Context, complaintID, newOfficerID string, actorID uuid.UUID) (*ComplaintResponse, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}

	officer, err := s.userRepo.GetByID(ctx, newOfficerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNotFound, "officer not found", err)
	}
	if officer.Role != model.RoleOfficer {
		return nil, apperr.Newf(apperr.KindValidation, "user %s is not an officer", newOfficerID)
	}

	var complaint *model.Complaint
	var event *model.LifecycleEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		complaint, findErr = s.complaintRepo.FindByID(txCtx, cid)
		if findErr != nil {
			return findErr
		}

		if complaint.IsClosed {
			return apperr.New(apperr.KindInvalidTransition, "cannot reassign a closed complaint")
		}
		if complaint.Status != model.StatusInProgress || !complaint.IsOfficerAssigned {
			return apperr.Newf(apperr.KindInvalidTransition,
				"complaint %s cannot be reassigned from status %s", complaint.ComplaintCode, complaint.Status)
		}

		var oldOfficer string
		if complaint.OfficerID != nil {
			oldOfficer = complaint.OfficerID.String()
		}
		complaint.OfficerID = &officer.ID

		if updErr := s.complaintRepo.UpdateVersioned(txCtx, complaint); updErr != nil {
			return updErr
		}

		var recErr error
		event, recErr = s.events.Record(txCtx, model.EventComplaintReassigned, complaint.ID, &actorID, map[string]interface{}{
			"old_officer_id": oldOfficer,
			"new_officer_id": officer.ID.String(),
		})
		return recErr
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(event)
	return toComplaintResponse(complaint), nil
}

func (s *complaintService) SetStatus(ctx context.Context, complaintID, newStatus string, actorID uuid.UUID) (*ComplaintResponse, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}
	if !model.IsValidStatus(newStatus) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown status %q", newStatus)
	}

	var complaint *model.Complaint
	var event *model.LifecycleEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		complaint, findErr = s.complaintRepo.FindByID(txCtx, cid)
		if findErr != nil {
			return findErr
		}

		if complaint.IsClosed {
			return apperr.New(apperr.KindInvalidTransition, "cannot change status of a closed complaint")
		}
		// Only in_progress → resolved|rejected is legal.
		if complaint.Status != model.StatusInProgress ||
			(newStatus != model.StatusResolved && newStatus != model.StatusRejected) {
			return apperr.Newf(apperr.KindInvalidTransition,
				"illegal transition %s → %s", complaint.Status, newStatus)
		}

		oldStatus := complaint.Status
		complaint.Status = newStatus

		if updErr := s.complaintRepo.UpdateVersioned(txCtx, complaint); updErr != nil {
			return updErr
		}

		var recErr error
		event, recErr = s.events.Record(txCtx, model.EventComplaintStatusChanged, complaint.ID, &actorID, map[string]interface{}{
			"old_status": oldStatus,
			"new_status": newStatus,
		})
		return recErr
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(event)
	return toComplaintResponse(complaint), nil
}

func (s *complaintService) Close(ctx context.Context, complaintID string, actorID uuid.UUID, req CloseComplaintRequest) (*ComplaintResponse, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}
	if req.Remarks == "" {
		return nil, apperr.New(apperr.KindValidation, "closing remarks are required")
	}

	var complaint *model.Complaint
	var event *model.LifecycleEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		complaint, findErr = s.complaintRepo.FindByID(txCtx, cid)
		if findErr != nil {
			return findErr
		}

		if complaint.IsClosed {
			return apperr.Newf(apperr.KindAlreadyClosed, "complaint %s is already closed", complaint.ComplaintCode)
		}
		if complaint.Status != model.StatusResolved && complaint.Status != model.StatusRejected {
			return apperr.Newf(apperr.KindInvalidTransition,
				"complaint %s must be resolved or rejected before closing, got %s",
				complaint.ComplaintCode, complaint.Status)
		}

		attachments := "[]"
		if len(req.Attachments) > 0 {
			raw, marshalErr := json.Marshal(req.Attachments)
			if marshalErr != nil {
				return apperr.Wrap(apperr.KindValidation, "invalid attachments metadata", marshalErr)
			}
			attachments = string(raw)
		}

		now := time.Now()
		complaint.IsClosed = true
		complaint.ClosedAt = &now
		complaint.ClosedBy = &actorID
		complaint.ClosingRemarks = req.Remarks
		complaint.ProofReference = req.ProofReference
		complaint.ClosingAttachments = attachments

		if updErr := s.complaintRepo.UpdateVersioned(txCtx, complaint); updErr != nil {
			return updErr
		}

		var recErr error
		event, recErr = s.events.Record(txCtx, model.EventComplaintClosed, complaint.ID, &actorID, map[string]interface{}{
			"status":  complaint.Status,
			"remarks": req.Remarks,
		})
		return recErr
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(event)
	return toComplaintResponse(complaint), nil
}

// SetPriority reclassifies a complaint. Priority is classification
// metadata, not lifecycle state, so no lifecycle event is emitted.
func (s *complaintService) SetPriority(ctx context.Context, complaintID, priority string, actorID uuid.UUID) (*ComplaintResponse, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}
	if !model.IsValidPriority(priority) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid priority %q", priority)
	}

	var complaint *model.Complaint
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		complaint, findErr = s.complaintRepo.FindByID(txCtx, cid)
		if findErr != nil {
			return findErr
		}
		if complaint.IsClosed {
			return apperr.New(apperr.KindInvalidState, "cannot reprioritize a closed complaint")
		}
		complaint.Priority = priority
		return s.complaintRepo.UpdateVersioned(txCtx, complaint)
	})
	if err != nil {
		return nil, err
	}
	return toComplaintResponse(complaint), nil
}

func (s *complaintService) ExtendDeadline(ctx context.Context, complaintID uuid.UUID, days int) error {
	if days <= 0 {
		return apperr.New(apperr.KindValidation, "extension days must be positive")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		complaint, err := s.complaintRepo.FindByID(txCtx, complaintID)
		if err != nil {
			return err
		}
		if complaint.IsClosed {
			return apperr.Newf(apperr.KindInvalidState, "complaint %s is closed", complaint.ComplaintCode)
		}

		complaint.TimeBoundary += days
		complaint.IsExtended = true
		return s.complaintRepo.UpdateVersioned(txCtx, complaint)
	})
}

// IsOverdue is a pure read; it takes no locks and mutates nothing.
func (s *complaintService) IsOverdue(ctx context.Context, complaintID string, now time.Time) (bool, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return false, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}
	complaint, err := s.complaintRepo.FindByID(ctx, cid)
	if err != nil {
		return false, err
	}
	return complaint.IsOverdue(now), nil
}

func (s *complaintService) AddNote(ctx context.Context, complaintID string, authorID uuid.UUID, req AddNoteRequest) (*model.ComplaintNote, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}
	if req.Body == "" {
		return nil, apperr.New(apperr.KindValidation, "note body is required")
	}

	if _, err := s.complaintRepo.FindByID(ctx, cid); err != nil {
		return nil, err
	}

	note := &model.ComplaintNote{
		ComplaintID: cid,
		AuthorID:    authorID,
		Body:        req.Body,
	}
	if err := s.complaintRepo.CreateNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *complaintService) ListNotes(ctx context.Context, complaintID string) ([]model.ComplaintNote, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}
	return s.complaintRepo.ListNotes(ctx, cid)
}

// generateComplaintCode produces the stable external identifier, e.g.
// GRV-20260901-00042, sequenced per day.
func (s *complaintService) generateComplaintCode(ctx context.Context, now time.Time) (string, error) {
	prefix := "GRV-" + now.Format("20060102") + "-"
	seq, err := s.complaintRepo.NextCodeSequence(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, seq), nil
}

// --- Helpers ---

func toComplaintResponse(c *model.Complaint) *ComplaintResponse {
	resp := &ComplaintResponse{
		ID:                c.ID.String(),
		ComplaintCode:     c.ComplaintCode,
		Category:          c.Category,
		SubCategory:       c.SubCategory,
		Priority:          c.Priority,
		Status:            c.Status,
		Subject:           c.Subject,
		Description:       c.Description,
		ContactName:       c.ContactName,
		ContactPhone:      c.ContactPhone,
		DistrictCode:      c.DistrictCode,
		SubdistrictCode:   c.SubdistrictCode,
		VillageCode:       c.VillageCode,
		IsOfficerAssigned: c.IsOfficerAssigned,
		ArrivalTime:       c.ArrivalTime.Format(time.RFC3339),
		TimeBoundary:      c.TimeBoundary,
		IsExtended:        c.IsExtended,
		IsOverdue:         c.IsOverdue(time.Now()),
		IsClosed:          c.IsClosed,
		ClosingRemarks:    c.ClosingRemarks,
		ProofReference:    c.ProofReference,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
	}

	if c.OfficerID != nil {
		officerID := c.OfficerID.String()
		resp.OfficerID = &officerID
	}
	if c.Officer != nil {
		resp.OfficerName = c.Officer.Username
	}
	if c.AssignedTime != nil {
		assigned := c.AssignedTime.Format(time.RFC3339)
		resp.AssignedTime = &assigned
	}
	if deadline, ok := c.Deadline(); ok {
		d := deadline.Format(time.RFC3339)
		resp.Deadline = &d
	}
	if c.ClosedAt != nil {
		closed := c.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &closed
	}

	return resp
}
