package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for registration operations.
var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for malformed identifiers or payloads.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict signals a transient storage-level version conflict.
	// The registration service retries it; it never reaches callers.
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrContended is returned when an operation exhausted its retries or
	// its timeout under contention. Callers may retry; it must never be
	// reported as EventFull.
	ErrContended = errors.New("operation contended, retry later")
	// ErrCorruptState is returned when registration_count disagrees with
	// the registrant set size at read time. It is never repaired by
	// guessing which side is correct.
	ErrCorruptState = errors.New("registration state corrupted")
)

// Decision is the closed set of outcomes of a registration operation.
// swagger:model Decision
type Decision int

const (
	DecisionUnknown Decision = iota
	DecisionRegistered
	DecisionUnregistered
	DecisionAlreadyRegistered
	DecisionEventFull
	DecisionDeadlinePassed
	DecisionRegistrationNotRequired
	DecisionNotRegistered
	DecisionEventNotFound
)

var decisionNames = map[Decision]string{
	DecisionUnknown:                 "unknown",
	DecisionRegistered:              "registered",
	DecisionUnregistered:            "unregistered",
	DecisionAlreadyRegistered:       "already_registered",
	DecisionEventFull:               "event_full",
	DecisionDeadlinePassed:          "deadline_passed",
	DecisionRegistrationNotRequired: "registration_not_required",
	DecisionNotRegistered:           "not_registered",
	DecisionEventNotFound:           "event_not_found",
}

func (d Decision) String() string {
	if s, ok := decisionNames[d]; ok {
		return s
	}
	return "unknown"
}

// Accepted reports whether the decision is a successful state change.
func (d Decision) Accepted() bool {
	return d == DecisionRegistered || d == DecisionUnregistered
}

// Registration represents one user's registration for an event.
// swagger:model Registration
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RegistrationWithEvent bundles a registration with its related event.
type RegistrationWithEvent struct {
	Registration *Registration `json:"registration"`
	Event        *Event        `json:"event"`
}

// RegistrationStats is a read-only projection of an event's registration
// state. Remaining is -1 when capacity is unlimited.
// swagger:model RegistrationStats
type RegistrationStats struct {
	EventID   string `json:"event_id"`
	Count     int    `json:"count"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
}

// RegistrationStore owns the registrant set and counter of every event.
// TryRegister and TryUnregister are the only write paths and must apply
// their capacity/membership preconditions atomically with the mutation;
// a precondition re-checked outside the atomic step does not count.
// Transient conflicts are reported as ErrConflict and are safe to retry.
type RegistrationStore interface {
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	// TryRegister adds userID to the event's registrants and increments the
	// counter only if userID is absent and capacity allows, as one atomic
	// conditional update. Precondition failures come back as decisions, not
	// errors: AlreadyRegistered, EventFull, EventNotFound.
	TryRegister(ctx context.Context, eventID, userID string, now time.Time) (Decision, error)
	// TryUnregister removes userID and decrements the counter only if the
	// user is present. Removing an absent member reports NotRegistered.
	TryUnregister(ctx context.Context, eventID, userID string) (Decision, error)
	Stats(ctx context.Context, eventID string) (*RegistrationStats, error)
	ListByUserID(ctx context.Context, userID string) ([]*Registration, error)
}

// RegistrationService performs register/unregister as a single atomic
// unit, retrying transient conflicts internally.
type RegistrationService interface {
	Register(ctx context.Context, eventID, userID string) (Decision, error)
	Unregister(ctx context.Context, eventID, userID string) (Decision, error)
}

// QueryService exposes read-only projections for display and reporting.
// Its answers may be slightly stale and must never feed a write decision.
type QueryService interface {
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	RegistrationStats(ctx context.Context, eventID string) (*RegistrationStats, error)
	ListMyRegistrations(ctx context.Context, userID string) ([]*RegistrationWithEvent, error)
}
