package domain

import (
	"context"
	"time"
)

// Event represents a university event. Capacity, deadline, fee and the
// registration-required flag are owned by event management and read-mostly
// here. Registrants and RegistrationCount are mutated only through the
// RegistrationStore's atomic operations, never by direct assignment.
// swagger:model Event
type Event struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	RegistrationRequired bool       `json:"registration_required"`
	Capacity             int        `json:"capacity"` // 0 means unlimited
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	StartsAt             *time.Time `json:"starts_at,omitempty"`
	FeeCents             int64      `json:"fee_cents"` // informational, never charged here
	RegistrationCount    int        `json:"registration_count"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(name, description string, registrationRequired bool, capacity int, feeCents int64, deadline, startsAt *time.Time, createdAt, updatedAt time.Time) *Event {
	return &Event{
		Name:                 name,
		Description:          description,
		RegistrationRequired: registrationRequired,
		Capacity:             capacity,
		FeeCents:             feeCents,
		RegistrationDeadline: deadline,
		StartsAt:             startsAt,
		CreatedAt:            createdAt,
		UpdatedAt:            updatedAt,
	}
}

// Unlimited reports whether the event has no attendance cap.
func (e *Event) Unlimited() bool {
	return e.Capacity == 0
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
}

// EventService defines event-management operations exposed to callers.
// Registration state is out of its reach; it never touches registrants.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
}
