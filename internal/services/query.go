package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campusevents/internal/adapters/cache"
	"campusevents/internal/domain"
)

type queryService struct {
	store     domain.RegistrationStore
	eventRepo domain.EventRepository
	stats     *cache.StatsCache
	logger    *slog.Logger
}

// NewQueryService creates the read-only query facade. statsCache may be
// nil-backed; every lookup then goes to the store.
func NewQueryService(store domain.RegistrationStore, eventRepo domain.EventRepository, statsCache *cache.StatsCache, logger *slog.Logger) domain.QueryService {
	return &queryService{
		store:     store,
		eventRepo: eventRepo,
		stats:     statsCache,
		logger:    logger,
	}
}

func (s *queryService) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	registered, err := s.store.IsRegistered(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("is registered: %w", err)
	}
	return registered, nil
}

func (s *queryService) RegistrationStats(ctx context.Context, eventID string) (*domain.RegistrationStats, error) {
	if cached, ok := s.stats.Get(ctx, eventID); ok {
		return cached, nil
	}
	stats, err := s.store.Stats(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		if errors.Is(err, domain.ErrCorruptState) {
			s.logger.ErrorContext(ctx, "CORRUPTED REGISTRATION STATE", "event_id", eventID, "err", err)
		}
		return nil, fmt.Errorf("registration stats: %w", err)
	}
	s.stats.Set(ctx, eventID, stats)
	return stats, nil
}

func (s *queryService) ListMyRegistrations(ctx context.Context, userID string) ([]*domain.RegistrationWithEvent, error) {
	regs, err := s.store.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	// Fetch events one by one (N+1). This keeps the implementation simple;
	// we can optimize later if needed.
	eventsByID := make(map[string]*domain.Event)
	result := []*domain.RegistrationWithEvent{}
	for _, reg := range regs {
		ev, ok := eventsByID[reg.EventID]
		if !ok {
			ev, err = s.eventRepo.GetByID(ctx, reg.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// Event deleted after the registration was written; skip it.
					continue
				}
				return nil, fmt.Errorf("get event for registration: %w", err)
			}
			eventsByID[reg.EventID] = ev
		}
		result = append(result, &domain.RegistrationWithEvent{
			Registration: reg,
			Event:        ev,
		})
	}
	return result, nil
}
