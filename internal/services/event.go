package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusevents/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	contextTimeout time.Duration
}

// NewEventService creates the event-management service. It owns the static
// event attributes only; registration state is mutated exclusively by the
// registration service.
func NewEventService(eventRepo domain.EventRepository, timeout time.Duration) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if event.Name == "" {
		return fmt.Errorf("event name is required: %w", domain.ErrInvalidInput)
	}
	if event.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative: %w", domain.ErrInvalidInput)
	}
	if event.FeeCents < 0 {
		return fmt.Errorf("fee must not be negative: %w", domain.ErrInvalidInput)
	}

	event.RegistrationCount = 0
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	return s.eventRepo.Create(ctx, event)
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
