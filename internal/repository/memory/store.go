// Package memory provides an in-process registration store. It backs the
// concurrency tests and local development without Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusevents/internal/domain"
)

type eventState struct {
	event       domain.Event
	registrants map[string]*domain.Registration
}

// Store keeps events and registrant sets in memory. The registrant set and
// counter are mutated only under the write lock with the preconditions
// evaluated at apply time, so concurrent registrations can never overshoot
// capacity or double-add a user.
type Store struct {
	mu     sync.RWMutex
	events map[string]*eventState
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events: make(map[string]*eventState),
	}
}

var (
	_ domain.EventRepository   = (*Store)(nil)
	_ domain.RegistrationStore = (*Store)(nil)
)

// Create implements domain.EventRepository.
func (s *Store) Create(ctx context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("event %s: %w", event.ID, domain.ErrInvalidInput)
	}
	s.events[event.ID] = &eventState{
		event:       *event,
		registrants: make(map[string]*domain.Registration),
	}
	return nil
}

// GetByID implements domain.EventRepository.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return s.GetEvent(ctx, id)
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if st.event.RegistrationCount != len(st.registrants) {
		return nil, fmt.Errorf("event %s: counter %d vs %d registrants: %w",
			eventID, st.event.RegistrationCount, len(st.registrants), domain.ErrCorruptState)
	}
	ev := st.event
	return &ev, nil
}

func (s *Store) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.events[eventID]
	if !ok {
		return false, domain.ErrNotFound
	}
	_, registered := st.registrants[userID]
	return registered, nil
}

// TryRegister evaluates the guard and applies the mutation under the same
// write lock, so the capacity and duplicate preconditions hold at the
// instant of the write. This is the in-process equivalent of a conditional
// update checked by the storage engine.
func (s *Store) TryRegister(ctx context.Context, eventID, userID string, now time.Time) (domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.events[eventID]
	if !ok {
		return domain.DecisionEventNotFound, nil
	}
	_, member := st.registrants[userID]

	decision := domain.EvaluateRegistration(&st.event, member, now)
	if decision != domain.DecisionRegistered {
		return decision, nil
	}

	st.registrants[userID] = &domain.Registration{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: now,
	}
	st.event.RegistrationCount = len(st.registrants)
	return domain.DecisionRegistered, nil
}

func (s *Store) TryUnregister(ctx context.Context, eventID, userID string) (domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.events[eventID]
	if !ok {
		return domain.DecisionEventNotFound, nil
	}
	if _, member := st.registrants[userID]; !member {
		return domain.DecisionNotRegistered, nil
	}
	delete(st.registrants, userID)
	st.event.RegistrationCount = len(st.registrants)
	return domain.DecisionUnregistered, nil
}

func (s *Store) Stats(ctx context.Context, eventID string) (*domain.RegistrationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	count := len(st.registrants)
	if st.event.RegistrationCount != count {
		return nil, fmt.Errorf("event %s: counter %d vs %d registrants: %w",
			eventID, st.event.RegistrationCount, count, domain.ErrCorruptState)
	}
	remaining := -1
	if st.event.Capacity > 0 {
		remaining = st.event.Capacity - count
		if remaining < 0 {
			remaining = 0
		}
	}
	return &domain.RegistrationStats{
		EventID:   eventID,
		Count:     count,
		Capacity:  st.event.Capacity,
		Remaining: remaining,
	}, nil
}

func (s *Store) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	regs := []*domain.Registration{}
	for _, st := range s.events {
		if reg, ok := st.registrants[userID]; ok {
			r := *reg
			regs = append(regs, &r)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.After(regs[j].CreatedAt) })
	return regs, nil
}

// CorruptCounter deliberately desynchronizes the counter from the
// registrant set. Test hook for the corrupted-invariant path.
func (s *Store) CorruptCounter(eventID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.events[eventID]; ok {
		st.event.RegistrationCount = count
	}
}
