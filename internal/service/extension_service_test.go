package service

import (
	"context"
	"testing"
	"time"

	"grievance/internal/model"
	"grievance/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

func TestExtensionRequestAndApprove(t *testing.T) {
	env := setupTestEnv("extension_approve")
	ctx := context.Background()

	created, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	id := created.ID
	cid := mustParseUUID(t, id)

	_, err = env.complaints.Assign(ctx, id, env.officer.ID.String(), env.admin.ID)
	assert.NoError(t, err)

	var requestID string

	t.Run("Officer requests five more days", func(t *testing.T) {
		req, err := env.extensions.Request(ctx, id, env.officer.ID, model.RoleOfficer,
			RequestExtensionRequest{Days: 5, Reason: "waiting for spare parts"})
		assert.NoError(t, err)
		assert.Equal(t, model.ExtensionPending, req.Status)
		assert.Equal(t, 5, req.DaysRequested)
		requestID = req.ID
	})

	t.Run("Second pending request is rejected", func(t *testing.T) {
		_, err := env.extensions.Request(ctx, id, env.officer.ID, model.RoleOfficer,
			RequestExtensionRequest{Days: 3, Reason: "more time"})
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})

	t.Run("Citizen cannot request", func(t *testing.T) {
		_, err := env.extensions.Request(ctx, id, env.citizen.ID, model.RoleCitizen,
			RequestExtensionRequest{Days: 2, Reason: "please"})
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("Officer cannot decide", func(t *testing.T) {
		_, err := env.extensions.Decide(ctx, requestID, env.officer.ID, model.RoleOfficer,
			DecideExtensionRequest{Outcome: model.ExtensionApproved})
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	})

	t.Run("Admin approves", func(t *testing.T) {
		decided, err := env.extensions.Decide(ctx, requestID, env.admin.ID, model.RoleAdmin,
			DecideExtensionRequest{Outcome: model.ExtensionApproved, Notes: "justified"})
		assert.NoError(t, err)
		assert.Equal(t, model.ExtensionApproved, decided.Status)
		assert.NotNil(t, decided.DecidedAt)

		complaint, err := env.complaintRepo.FindByID(ctx, cid)
		assert.NoError(t, err)
		assert.Equal(t, model.DefaultTimeBoundaryDays+5, complaint.TimeBoundary)
		assert.True(t, complaint.IsExtended)
	})

	t.Run("Deciding twice is rejected", func(t *testing.T) {
		_, err := env.extensions.Decide(ctx, requestID, env.admin.ID, model.RoleAdmin,
			DecideExtensionRequest{Outcome: model.ExtensionRejected})
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	})

	t.Run("Arbitration leaves an event trail", func(t *testing.T) {
		events, err := env.events.ListByComplaint(ctx, cid)
		assert.NoError(t, err)

		types := make([]string, 0, len(events))
		for _, e := range events {
			types = append(types, e.EventType)
		}
		assert.Contains(t, types, model.EventExtensionRequested)
		assert.Contains(t, types, model.EventExtensionDecided)
	})
}

func TestExtensionReject(t *testing.T) {
	env := setupTestEnv("extension_reject")
	ctx := context.Background()

	created, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	cid := mustParseUUID(t, created.ID)

	req, err := env.extensions.Request(ctx, created.ID, env.officer.ID, model.RoleOfficer,
		RequestExtensionRequest{Days: 10, Reason: "complex case"})
	assert.NoError(t, err)

	decided, err := env.extensions.Decide(ctx, req.ID, env.admin.ID, model.RoleAdmin,
		DecideExtensionRequest{Outcome: model.ExtensionRejected, Notes: "insufficient grounds"})
	assert.NoError(t, err)
	assert.Equal(t, model.ExtensionRejected, decided.Status)

	// rejection must not touch the boundary
	complaint, err := env.complaintRepo.FindByID(ctx, cid)
	assert.NoError(t, err)
	assert.Equal(t, model.DefaultTimeBoundaryDays, complaint.TimeBoundary)
	assert.False(t, complaint.IsExtended)

	t.Run("New request allowed after rejection", func(t *testing.T) {
		_, err := env.extensions.Request(ctx, created.ID, env.officer.ID, model.RoleOfficer,
			RequestExtensionRequest{Days: 4, Reason: "second attempt"})
		assert.NoError(t, err)
	})
}

func TestExtensionValidation(t *testing.T) {
	env := setupTestEnv("extension_validation")
	ctx := context.Background()

	created, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)

	t.Run("Days above the cap", func(t *testing.T) {
		_, err := env.extensions.Request(ctx, created.ID, env.officer.ID, model.RoleOfficer,
			RequestExtensionRequest{Days: DefaultExtensionCapDays + 1, Reason: "too long"})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("Missing reason", func(t *testing.T) {
		_, err := env.extensions.Request(ctx, created.ID, env.officer.ID, model.RoleOfficer,
			RequestExtensionRequest{Days: 3})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("Closed complaint", func(t *testing.T) {
		_, err := env.complaints.Assign(ctx, created.ID, env.officer.ID.String(), env.admin.ID)
		assert.NoError(t, err)
		_, err = env.complaints.SetStatus(ctx, created.ID, model.StatusResolved, env.officer.ID)
		assert.NoError(t, err)
		_, err = env.complaints.Close(ctx, created.ID, env.admin.ID, CloseComplaintRequest{Remarks: "done"})
		assert.NoError(t, err)

		_, err = env.extensions.Request(ctx, created.ID, env.officer.ID, model.RoleOfficer,
			RequestExtensionRequest{Days: 3, Reason: "late"})
		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	})

	t.Run("Unknown complaint", func(t *testing.T) {
		_, err := env.extensions.Request(ctx, "6f1f1c4e-0000-0000-0000-000000000000", env.officer.ID, model.RoleOfficer,
			RequestExtensionRequest{Days: 3, Reason: "ghost"})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestExtensionDecisionWrittenOnce(t *testing.T) {
	env := setupTestEnv("extension_decided_once")
	ctx := context.Background()

	created, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	cid := mustParseUUID(t, created.ID)

	req, err := env.extensions.Request(ctx, created.ID, env.officer.ID, model.RoleOfficer,
		RequestExtensionRequest{Days: 5, Reason: "waiting for survey report"})
	assert.NoError(t, err)
	rid := mustParseUUID(t, req.ID)

	// A rival decider holds a copy read while the request was still pending.
	stale, err := env.extensionRepo.FindByID(ctx, rid)
	assert.NoError(t, err)
	assert.Equal(t, model.ExtensionPending, stale.Status)

	_, err = env.extensions.Decide(ctx, req.ID, env.admin.ID, model.RoleAdmin,
		DecideExtensionRequest{Outcome: model.ExtensionApproved})
	assert.NoError(t, err)

	// The stale write must lose rather than overwrite the committed approval.
	now := time.Now()
	stale.Status = model.ExtensionRejected
	stale.DecidedBy = &env.admin.ID
	stale.DecidedAt = &now
	err = env.extensionRepo.UpdateDecision(ctx, stale)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	reloaded, err := env.extensionRepo.FindByID(ctx, rid)
	assert.NoError(t, err)
	assert.Equal(t, model.ExtensionApproved, reloaded.Status)

	complaint, err := env.complaintRepo.FindByID(ctx, cid)
	assert.NoError(t, err)
	assert.Equal(t, model.DefaultTimeBoundaryDays+5, complaint.TimeBoundary)
	assert.True(t, complaint.IsExtended)
}

func TestExtensionOldestPendingRule(t *testing.T) {
	env := setupTestEnv("extension_oldest")
	ctx := context.Background()

	created, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	cid := mustParseUUID(t, created.ID)

	// Force two pending rows directly to simulate a historical integrity
	// breach; only the oldest may be decided.
	older := &model.ExtensionRequest{
		ComplaintID:   cid,
		RequestedBy:   env.officer.ID,
		RequesterRole: model.RoleOfficer,
		DaysRequested: 2,
		Reason:        "first",
		Status:        model.ExtensionPending,
		CreatedAt:     time.Now().Add(-time.Minute),
	}
	assert.NoError(t, env.extensionRepo.Create(ctx, older))

	newer := &model.ExtensionRequest{
		ComplaintID:   cid,
		RequestedBy:   env.officer.ID,
		RequesterRole: model.RoleOfficer,
		DaysRequested: 3,
		Reason:        "second",
		Status:        model.ExtensionPending,
	}
	assert.NoError(t, env.extensionRepo.Create(ctx, newer))

	_, err = env.extensions.Decide(ctx, newer.ID.String(), env.admin.ID, model.RoleAdmin,
		DecideExtensionRequest{Outcome: model.ExtensionApproved})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = env.extensions.Decide(ctx, older.ID.String(), env.admin.ID, model.RoleAdmin,
		DecideExtensionRequest{Outcome: model.ExtensionApproved})
	assert.NoError(t, err)
}
