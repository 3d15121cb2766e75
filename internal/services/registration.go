package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"campusevents/internal/domain"
)

// Retry policy for transient storage conflicts. The backoff is jittered so
// racers on a popular event near capacity do not stampede in lockstep.
const (
	maxAttempts = 5
	minBackoff  = 5 * time.Millisecond
	maxBackoff  = 50 * time.Millisecond
)

type registrationService struct {
	store          domain.RegistrationStore
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewRegistrationService creates the RegistrationService. timeout bounds a
// whole operation including all internal retries.
func NewRegistrationService(store domain.RegistrationStore, logger *slog.Logger, timeout time.Duration) domain.RegistrationService {
	return &registrationService{
		store:          store,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// Register registers userID for the event. The registration-required and
// deadline checks run against a snapshot as a fast-path rejection; they do
// not depend on other requests. The capacity and duplicate checks are left
// to the store's atomic conditional mutation, which is what closes the
// check-then-act race.
func (s *registrationService) Register(ctx context.Context, eventID, userID string) (domain.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if eventID == "" || userID == "" {
		return domain.DecisionUnknown, domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DecisionEventNotFound, nil
		}
		return domain.DecisionUnknown, s.classify(ctx, "get event", eventID, userID, err)
	}
	if !event.RegistrationRequired {
		return domain.DecisionRegistrationNotRequired, nil
	}
	if event.RegistrationDeadline != nil && now.After(*event.RegistrationDeadline) {
		return domain.DecisionDeadlinePassed, nil
	}

	return s.withRetry(ctx, "register", eventID, userID, func() (domain.Decision, error) {
		return s.store.TryRegister(ctx, eventID, userID, now)
	})
}

// Unregister removes userID's registration. Allowed until the event
// starts, regardless of the registration deadline.
func (s *registrationService) Unregister(ctx context.Context, eventID, userID string) (domain.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if eventID == "" || userID == "" {
		return domain.DecisionUnknown, domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DecisionEventNotFound, nil
		}
		return domain.DecisionUnknown, s.classify(ctx, "get event", eventID, userID, err)
	}
	if event.StartsAt != nil && now.After(*event.StartsAt) {
		return domain.DecisionDeadlinePassed, nil
	}

	return s.withRetry(ctx, "unregister", eventID, userID, func() (domain.Decision, error) {
		return s.store.TryUnregister(ctx, eventID, userID)
	})
}

// withRetry runs the atomic store operation, retrying transient conflicts
// with jittered backoff up to maxAttempts within the operation deadline.
// Exhaustion and timeout surface as ErrContended, which callers must treat
// as retryable and never as a domain rejection.
func (s *registrationService) withRetry(ctx context.Context, op, eventID, userID string, attempt func() (domain.Decision, error)) (domain.Decision, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		decision, err := attempt()
		if err == nil {
			return decision, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DecisionEventNotFound, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domain.DecisionUnknown, s.classify(ctx, op, eventID, userID, err)
		}
		lastErr = err

		select {
		case <-time.After(jitteredBackoff(i)):
		case <-ctx.Done():
			return domain.DecisionUnknown, fmt.Errorf("%s %s/%s: %v: %w", op, eventID, userID, ctx.Err(), domain.ErrContended)
		}
	}
	s.logger.WarnContext(ctx, "retries exhausted",
		"op", op, "event_id", eventID, "user_id", userID, "attempts", maxAttempts, "err", lastErr)
	return domain.DecisionUnknown, fmt.Errorf("%s %s/%s after %d attempts: %w", op, eventID, userID, maxAttempts, domain.ErrContended)
}

// classify wraps a hard store failure. An operation deadline that
// expired inside a store call (database/sql cancels the in-flight query
// and returns the context error) is contention, not a failure: it comes
// back as ErrContended so callers retry instead of treating it as fatal.
// A corrupted invariant is logged loudly before it propagates.
func (s *registrationService) classify(ctx context.Context, op, eventID, userID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s/%s: %v: %w", op, eventID, userID, err, domain.ErrContended)
	}
	if errors.Is(err, domain.ErrCorruptState) {
		s.logger.ErrorContext(ctx, "CORRUPTED REGISTRATION STATE",
			"op", op, "event_id", eventID, "user_id", userID, "err", err)
	}
	return fmt.Errorf("%s %s/%s: %w", op, eventID, userID, err)
}

// jitteredBackoff grows the wait with the attempt number and randomizes it
// within [minBackoff, ceiling) to spread retries of concurrent losers.
func jitteredBackoff(attempt int) time.Duration {
	ceiling := minBackoff << attempt
	if ceiling > maxBackoff {
		ceiling = maxBackoff
	}
	if ceiling <= minBackoff {
		return minBackoff
	}
	return minBackoff + time.Duration(rand.Int63n(int64(ceiling-minBackoff)))
}
