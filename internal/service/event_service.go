package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"grievance/internal/model"
	"grievance/internal/repository"
	ws "grievance/internal/websocket"

	"github.com/google/uuid"
)

// EventService derives lifecycle events from committed state
// transitions. Record runs inside the mutating transaction so the
// mutation and its event commit together; Publish runs after commit and
// is strictly best-effort.
type EventService interface {
	Record(ctx context.Context, eventType string, complaintID uuid.UUID, actorID *uuid.UUID, payload map[string]interface{}) (*model.LifecycleEvent, error)
	Publish(event *model.LifecycleEvent)
	ListByComplaint(ctx context.Context, complaintID uuid.UUID) ([]model.LifecycleEvent, error)
}

type eventService struct {
	repo repository.EventRepository
	hub  *ws.Hub
}

// NewEventService returns an EventService. The hub may be nil when no
// notification consumer is wired (e.g. in tests); Publish then no-ops.
func NewEventService(repo repository.EventRepository, hub *ws.Hub) EventService {
	return &eventService{repo: repo, hub: hub}
}

func (s *eventService) Record(ctx context.Context, eventType string, complaintID uuid.UUID, actorID *uuid.UUID, payload map[string]interface{}) (*model.LifecycleEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	event := &model.LifecycleEvent{
		EventType:   eventType,
		ComplaintID: complaintID,
		ActorID:     actorID,
		Payload:     string(body),
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// envelope is the wire format pushed to notification consumers.
type envelope struct {
	EventType   string          `json:"event_type"`
	ComplaintID string          `json:"complaint_id"`
	ActorID     *string         `json:"actor_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (s *eventService) Publish(event *model.LifecycleEvent) {
	if s.hub == nil || event == nil {
		return
	}

	env := envelope{
		EventType:   event.EventType,
		ComplaintID: event.ComplaintID.String(),
		Payload:     json.RawMessage(event.Payload),
		CreatedAt:   event.CreatedAt,
	}
	if event.ActorID != nil {
		actor := event.ActorID.String()
		env.ActorID = &actor
	}

	msg, err := json.Marshal(env)
	if err != nil {
		log.Printf("event publish: marshal failed for %s: %v", event.EventType, err)
		return
	}

	// Never block the mutation path on a slow notification consumer.
	select {
	case s.hub.Broadcast <- msg:
	default:
		log.Printf("event publish: broadcast buffer full, dropped %s for complaint %s",
			event.EventType, event.ComplaintID)
	}
}

func (s *eventService) ListByComplaint(ctx context.Context, complaintID uuid.UUID) ([]model.LifecycleEvent, error) {
	return s.repo.ListByComplaint(ctx, complaintID)
}
