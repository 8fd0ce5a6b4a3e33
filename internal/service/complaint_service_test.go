package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"grievance/internal/model"
	"grievance/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

func TestComplaintLifecycle(t *testing.T) {
	env := setupTestEnv("complaint_lifecycle")
	ctx := context.Background()

	var id string

	t.Run("Create", func(t *testing.T) {
		resp, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(resp.ComplaintCode, "GRV-"))
		assert.Equal(t, model.StatusPending, resp.Status)
		assert.Equal(t, model.PriorityMedium, resp.Priority)
		assert.Equal(t, model.DefaultTimeBoundaryDays, resp.TimeBoundary)
		assert.False(t, resp.IsOfficerAssigned)
		assert.Nil(t, resp.Deadline)
		assert.False(t, resp.IsOverdue)
		id = resp.ID
	})

	t.Run("Assign", func(t *testing.T) {
		resp, err := env.complaints.Assign(ctx, id, env.officer.ID.String(), env.admin.ID)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusInProgress, resp.Status)
		assert.True(t, resp.IsOfficerAssigned)
		assert.NotNil(t, resp.AssignedTime)
		assert.NotNil(t, resp.Deadline)
	})

	t.Run("Reassign keeps the deadline clock", func(t *testing.T) {
		before, err := env.complaints.Get(ctx, id)
		assert.NoError(t, err)

		resp, err := env.complaints.Reassign(ctx, id, env.officer2.ID.String(), env.admin.ID)
		assert.NoError(t, err)
		assert.Equal(t, env.officer2.ID.String(), *resp.OfficerID)
		assert.Equal(t, *before.AssignedTime, *resp.AssignedTime)
		assert.Equal(t, *before.Deadline, *resp.Deadline)
	})

	t.Run("Resolve", func(t *testing.T) {
		resp, err := env.complaints.SetStatus(ctx, id, model.StatusResolved, env.officer2.ID)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusResolved, resp.Status)
	})

	t.Run("Close", func(t *testing.T) {
		resp, err := env.complaints.Close(ctx, id, env.admin.ID, CloseComplaintRequest{
			Remarks:        "Pipe replaced and verified on site",
			ProofReference: "photo-2026-001",
			Attachments: []AttachmentMeta{
				{FileName: "repair.jpg", ContentType: "image/jpeg", StorageRef: "s3://proofs/repair.jpg"},
			},
		})
		assert.NoError(t, err)
		assert.True(t, resp.IsClosed)
		assert.NotNil(t, resp.ClosedAt)
		assert.Equal(t, model.StatusResolved, resp.Status)
	})

	t.Run("Close twice is rejected", func(t *testing.T) {
		_, err := env.complaints.Close(ctx, id, env.admin.ID, CloseComplaintRequest{Remarks: "again"})
		assert.Error(t, err)
		assert.Equal(t, apperr.KindAlreadyClosed, apperr.KindOf(err))
	})

	t.Run("Event trail is ordered", func(t *testing.T) {
		complaint, err := env.complaints.Get(ctx, id)
		assert.NoError(t, err)

		cid := mustParseUUID(t, complaint.ID)
		events, err := env.events.ListByComplaint(ctx, cid)
		assert.NoError(t, err)

		types := make([]string, 0, len(events))
		for _, e := range events {
			types = append(types, e.EventType)
		}
		assert.Equal(t, []string{
			model.EventComplaintCreated,
			model.EventComplaintAssigned,
			model.EventComplaintReassigned,
			model.EventComplaintStatusChanged,
			model.EventComplaintClosed,
		}, types)
	})
}

func TestComplaintTransitionGuards(t *testing.T) {
	env := setupTestEnv("complaint_guards")
	ctx := context.Background()

	resp, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	id := resp.ID

	t.Run("Resolve before assignment", func(t *testing.T) {
		_, err := env.complaints.SetStatus(ctx, id, model.StatusResolved, env.admin.ID)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	})

	t.Run("Close before resolution", func(t *testing.T) {
		_, err := env.complaints.Close(ctx, id, env.admin.ID, CloseComplaintRequest{Remarks: "no"})
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	})

	t.Run("Reassign before assignment", func(t *testing.T) {
		_, err := env.complaints.Reassign(ctx, id, env.officer.ID.String(), env.admin.ID)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	})

	_, err = env.complaints.Assign(ctx, id, env.officer.ID.String(), env.admin.ID)
	assert.NoError(t, err)

	t.Run("Assign twice", func(t *testing.T) {
		_, err := env.complaints.Assign(ctx, id, env.officer2.ID.String(), env.admin.ID)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	})

	t.Run("Back to pending", func(t *testing.T) {
		_, err := env.complaints.SetStatus(ctx, id, model.StatusPending, env.admin.ID)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	})

	t.Run("Assign to non-officer", func(t *testing.T) {
		other, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
		assert.NoError(t, err)
		_, err = env.complaints.Assign(ctx, other.ID, env.citizen.ID.String(), env.admin.ID)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestComplaintValidation(t *testing.T) {
	env := setupTestEnv("complaint_validation")
	ctx := context.Background()

	t.Run("Unknown village code", func(t *testing.T) {
		req := validCreateRequest()
		req.VillageCode = "V99"
		_, err := env.complaints.Create(ctx, &env.citizen.ID, req)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("Non-village code as village", func(t *testing.T) {
		req := validCreateRequest()
		req.VillageCode = "S01"
		_, err := env.complaints.Create(ctx, &env.citizen.ID, req)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("Invalid priority", func(t *testing.T) {
		req := validCreateRequest()
		req.Priority = "critical"
		_, err := env.complaints.Create(ctx, &env.citizen.ID, req)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("Missing contact", func(t *testing.T) {
		req := validCreateRequest()
		req.ContactPhone = ""
		_, err := env.complaints.Create(ctx, &env.citizen.ID, req)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("Get unknown complaint", func(t *testing.T) {
		_, err := env.complaints.Get(ctx, "6f1f1c4e-0000-0000-0000-000000000000")
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestComplaintOverdue(t *testing.T) {
	env := setupTestEnv("complaint_overdue")
	ctx := context.Background()

	resp, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	id := resp.ID

	t.Run("Unassigned complaint is never overdue", func(t *testing.T) {
		overdue, err := env.complaints.IsOverdue(ctx, id, time.Now().Add(365*24*time.Hour))
		assert.NoError(t, err)
		assert.False(t, overdue)
	})

	_, err = env.complaints.Assign(ctx, id, env.officer.ID.String(), env.admin.ID)
	assert.NoError(t, err)

	t.Run("Inside the boundary", func(t *testing.T) {
		overdue, err := env.complaints.IsOverdue(ctx, id, time.Now().Add(6*24*time.Hour))
		assert.NoError(t, err)
		assert.False(t, overdue)
	})

	t.Run("Past the boundary", func(t *testing.T) {
		overdue, err := env.complaints.IsOverdue(ctx, id, time.Now().Add(8*24*time.Hour))
		assert.NoError(t, err)
		assert.True(t, overdue)
	})

	t.Run("Closed complaint is never overdue", func(t *testing.T) {
		_, err := env.complaints.SetStatus(ctx, id, model.StatusRejected, env.officer.ID)
		assert.NoError(t, err)
		_, err = env.complaints.Close(ctx, id, env.admin.ID, CloseComplaintRequest{Remarks: "not actionable"})
		assert.NoError(t, err)

		overdue, err := env.complaints.IsOverdue(ctx, id, time.Now().Add(8*24*time.Hour))
		assert.NoError(t, err)
		assert.False(t, overdue)
	})
}

func TestComplaintConcurrentUpdateConflict(t *testing.T) {
	env := setupTestEnv("complaint_conflict")
	ctx := context.Background()

	resp, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	cid := mustParseUUID(t, resp.ID)

	first, err := env.complaintRepo.FindByID(ctx, cid)
	assert.NoError(t, err)
	second, err := env.complaintRepo.FindByID(ctx, cid)
	assert.NoError(t, err)

	first.Priority = model.PriorityHigh
	assert.NoError(t, env.complaintRepo.UpdateVersioned(ctx, first))

	// second still carries the stale version and must lose
	second.Priority = model.PriorityLow
	err = env.complaintRepo.UpdateVersioned(ctx, second)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	reloaded, err := env.complaintRepo.FindByID(ctx, cid)
	assert.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, reloaded.Priority)
}

func TestComplaintNotes(t *testing.T) {
	env := setupTestEnv("complaint_notes")
	ctx := context.Background()

	resp, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)

	_, err = env.complaints.AddNote(ctx, resp.ID, env.officer.ID, AddNoteRequest{Body: "visited the site"})
	assert.NoError(t, err)
	_, err = env.complaints.AddNote(ctx, resp.ID, env.officer.ID, AddNoteRequest{Body: "parts ordered"})
	assert.NoError(t, err)

	notes, err := env.complaints.ListNotes(ctx, resp.ID)
	assert.NoError(t, err)
	assert.Len(t, notes, 2)
	assert.Equal(t, "visited the site", notes[0].Body)

	t.Run("Empty note body", func(t *testing.T) {
		_, err := env.complaints.AddNote(ctx, resp.ID, env.officer.ID, AddNoteRequest{})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestComplaintSetPriority(t *testing.T) {
	env := setupTestEnv("complaint_priority")
	ctx := context.Background()

	resp, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)

	updated, err := env.complaints.SetPriority(ctx, resp.ID, model.PriorityUrgent, env.admin.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.PriorityUrgent, updated.Priority)

	// reprioritization is classification metadata, not a lifecycle transition
	cid := mustParseUUID(t, resp.ID)
	events, err := env.events.ListByComplaint(ctx, cid)
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, model.EventComplaintCreated, events[0].EventType)
}

func TestComplaintCodeSequence(t *testing.T) {
	env := setupTestEnv("complaint_codes")
	ctx := context.Background()

	first, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	second, err := env.complaints.Create(ctx, &env.citizen.ID, validCreateRequest())
	assert.NoError(t, err)
	assert.NotEqual(t, first.ComplaintCode, second.ComplaintCode)

	// the counter row advances independently of how many complaint rows exist
	seq, err := env.complaintRepo.NextCodeSequence(ctx, "GRV-19990101-")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = env.complaintRepo.NextCodeSequence(ctx, "GRV-19990101-")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestComplaintCreateStorageFailure(t *testing.T) {
	env := setupTestEnv("complaint_geo_outage")

	sqlDB, err := env.db.DB()
	assert.NoError(t, err)
	assert.NoError(t, sqlDB.Close())

	// a failed village lookup must surface as-is, not as bad input
	_, err = env.complaints.Create(context.Background(), &env.citizen.ID, validCreateRequest())
	assert.Error(t, err)
	assert.NotEqual(t, apperr.KindValidation, apperr.KindOf(err))
}
