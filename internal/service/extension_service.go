package service

import (
	"context"
	"log"
	"time"

	"grievance/internal/model"
	"grievance/internal/repository"
	"grievance/pkg/apperr"
	"grievance/pkg/pagination"

	"github.com/google/uuid"
)

// DefaultExtensionCapDays bounds a single extension request.
const DefaultExtensionCapDays = 30

// --- DTOs ---

type RequestExtensionRequest struct {
	Days   int    `json:"days" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required"`
}

type DecideExtensionRequest struct {
	Outcome string `json:"outcome" binding:"required,oneof=approved rejected"`
	Notes   string `json:"notes"`
}

type ExtensionResponse struct {
	ID            string  `json:"id"`
	ComplaintID   string  `json:"complaint_id"`
	RequestedBy   string  `json:"requested_by"`
	RequesterName string  `json:"requester_name,omitempty"`
	RequesterRole string  `json:"requester_role"`
	DaysRequested int     `json:"days_requested"`
	Reason        string  `json:"reason"`
	Status        string  `json:"status"`
	DecidedBy     *string `json:"decided_by"`
	DeciderName   string  `json:"decider_name,omitempty"`
	DecidedAt     *string `json:"decided_at"`
	DecisionNotes string  `json:"decision_notes,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// --- Interface ---

// ExtensionService arbitrates deadline extensions: officers request,
// admins decide. At most one pending request exists per complaint; an
// approval extends the complaint's time boundary in the same
// transaction as the decision.
type ExtensionService interface {
	Request(ctx context.Context, complaintID string, requesterID uuid.UUID, requesterRole string, req RequestExtensionRequest) (*ExtensionResponse, error)
	Decide(ctx context.Context, requestID string, deciderID uuid.UUID, deciderRole string, req DecideExtensionRequest) (*ExtensionResponse, error)
	List(ctx context.Context, complaintID, status string, page, limit int) ([]ExtensionResponse, int64, error)
}

type extensionService struct {
	extensionRepo repository.ExtensionRepository
	complaintRepo repository.ComplaintRepository
	complaints    ComplaintService
	events        EventService
	txManager     repository.TransactionManager
	capDays       int
}

func NewExtensionService(
	extensionRepo repository.ExtensionRepository,
	complaintRepo repository.ComplaintRepository,
	complaints ComplaintService,
	events EventService,
	txManager repository.TransactionManager,
	capDays int,
) ExtensionService {
	if capDays <= 0 {
		capDays = DefaultExtensionCapDays
	}
	return &extensionService{
		extensionRepo: extensionRepo,
		complaintRepo: complaintRepo,
		complaints:    complaints,
		events:        events,
		txManager:     txManager,
		capDays:       capDays,
	}
}

// --- Implementation ---

func (s *extensionService) Request(ctx context.Context, complaintID string, requesterID uuid.UUID, requesterRole string, req RequestExtensionRequest) (*ExtensionResponse, error) {
	cid, err := uuid.Parse(complaintID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
	}
	if requesterRole != model.RoleOfficer && requesterRole != model.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only officers and admins may request extensions")
	}
	if req.Days <= 0 {
		return nil, apperr.New(apperr.KindValidation, "extension days must be positive")
	}
	if req.Days > s.capDays {
		return nil, apperr.Newf(apperr.KindValidation, "extension days must not exceed %d", s.capDays)
	}
	if req.Reason == "" {
		return nil, apperr.New(apperr.KindValidation, "extension reason is required")
	}

	request := &model.ExtensionRequest{
		ComplaintID:   cid,
		RequestedBy:   requesterID,
		RequesterRole: requesterRole,
		DaysRequested: req.Days,
		Reason:        req.Reason,
		Status:        model.ExtensionPending,
	}

	var event *model.LifecycleEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		complaint, findErr := s.complaintRepo.FindByID(txCtx, cid)
		if findErr != nil {
			return findErr
		}
		if complaint.IsClosed {
			return apperr.Newf(apperr.KindInvalidState, "complaint %s is closed", complaint.ComplaintCode)
		}

		pending, pendErr := s.extensionRepo.FindPendingByComplaint(txCtx, cid)
		if pendErr != nil {
			return pendErr
		}
		if len(pending) > 0 {
			return apperr.Newf(apperr.KindConflict,
				"complaint %s already has a pending extension request", complaint.ComplaintCode)
		}

		if createErr := s.extensionRepo.Create(txCtx, request); createErr != nil {
			return createErr
		}

		// Bump the complaint version in the same transaction: this is
		// what makes check-then-insert atomic. Two racing requesters
		// both pass the pending check, but only one version bump wins;
		// the loser's whole transaction rolls back with Conflict.
		if bumpErr := s.complaintRepo.UpdateVersioned(txCtx, complaint); bumpErr != nil {
			return bumpErr
		}

		var recErr error
		event, recErr = s.events.Record(txCtx, model.EventExtensionRequested, cid, &requesterID, map[string]interface{}{
			"request_id":     request.ID.String(),
			"days_requested": req.Days,
			"reason":         req.Reason,
		})
		return recErr
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(event)
	return toExtensionResponse(request), nil
}

func (s *extensionService) Decide(ctx context.Context, requestID string, deciderID uuid.UUID, deciderRole string, req DecideExtensionRequest) (*ExtensionResponse, error) {
	rid, err := uuid.Parse(requestID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid request id", err)
	}
	if req.Outcome != model.ExtensionApproved && req.Outcome != model.ExtensionRejected {
		return nil, apperr.Newf(apperr.KindValidation, "invalid outcome %q", req.Outcome)
	}
	if deciderRole != model.RoleAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only admins may decide extension requests")
	}

	var request *model.ExtensionRequest
	var event *model.LifecycleEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		request, findErr = s.extensionRepo.FindByID(txCtx, rid)
		if findErr != nil {
			return findErr
		}
		if request.Status != model.ExtensionPending {
			return apperr.Newf(apperr.KindInvalidState, "extension request is already %s", request.Status)
		}

		// Only the oldest pending request is eligible. More than one
		// pending row violates the single-pending invariant; log it and
		// refuse rather than silently repairing.
		pending, pendErr := s.extensionRepo.FindPendingByComplaint(txCtx, request.ComplaintID)
		if pendErr != nil {
			return pendErr
		}
		if len(pending) > 1 {
			log.Printf("integrity violation: complaint %s has %d pending extension requests",
				request.ComplaintID, len(pending))
		}
		if len(pending) > 0 && pending[0].ID != request.ID {
			return apperr.New(apperr.KindConflict, "only the oldest pending extension request may be decided")
		}

		complaint, findErr := s.complaintRepo.FindByID(txCtx, request.ComplaintID)
		if findErr != nil {
			return findErr
		}
		oldBoundary := complaint.TimeBoundary

		now := time.Now()
		request.Status = req.Outcome
		request.DecidedBy = &deciderID
		request.DecidedAt = &now
		request.DecisionNotes = req.Notes

		// Conditional on the row still being pending: a rival decision
		// committed in between makes this a Conflict and rolls the whole
		// transaction back, so the boundary can never be extended twice.
		if updErr := s.extensionRepo.UpdateDecision(txCtx, request); updErr != nil {
			return updErr
		}

		newBoundary := oldBoundary
		if req.Outcome == model.ExtensionApproved {
			// Runs inside this transaction: if extending fails, the
			// decision is rolled back with it.
			if extErr := s.complaints.ExtendDeadline(txCtx, request.ComplaintID, request.DaysRequested); extErr != nil {
				return extErr
			}
			newBoundary = oldBoundary + request.DaysRequested
		}

		var recErr error
		event, recErr = s.events.Record(txCtx, model.EventExtensionDecided, request.ComplaintID, &deciderID, map[string]interface{}{
			"request_id":        request.ID.String(),
			"outcome":           req.Outcome,
			"days_requested":    request.DaysRequested,
			"old_time_boundary": oldBoundary,
			"new_time_boundary": newBoundary,
		})
		return recErr
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(event)
	return toExtensionResponse(request), nil
}

func (s *extensionService) List(ctx context.Context, complaintID, status string, page, limit int) ([]ExtensionResponse, int64, error) {
	var cid *uuid.UUID
	if complaintID != "" {
		parsed, err := uuid.Parse(complaintID)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindValidation, "invalid complaint id", err)
		}
		cid = &parsed
	}

	requests, total, err := s.extensionRepo.List(ctx, cid, status, pagination.Normalize(page, limit))
	if err != nil {
		return nil, 0, err
	}

	result := make([]ExtensionResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *toExtensionResponse(&requests[i]))
	}
	return result, total, nil
}

// --- Helpers ---

func toExtensionResponse(r *model.ExtensionRequest) *ExtensionResponse {
	resp := &ExtensionResponse{
		ID:            r.ID.String(),
		ComplaintID:   r.ComplaintID.String(),
		RequestedBy:   r.RequestedBy.String(),
		RequesterRole: r.RequesterRole,
		DaysRequested: r.DaysRequested,
		Reason:        r.Reason,
		Status:        r.Status,
		DecisionNotes: r.DecisionNotes,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}

	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.DecidedBy != nil {
		decider := r.DecidedBy.String()
		resp.DecidedBy = &decider
	}
	if r.Decider != nil {
		resp.DeciderName = r.Decider.Username
	}
	if r.DecidedAt != nil {
		decided := r.DecidedAt.Format(time.RFC3339)
		resp.DecidedAt = &decided
	}

	return resp
}
