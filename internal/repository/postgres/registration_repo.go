package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campusevents/internal/domain"
)

// Postgres error codes that indicate a transient conflict worth retrying.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqQueryCanceled        = "57014"
	pqForeignKeyViolation  = "23503"
)

type registrationRepository struct {
	DB *sql.DB
}

// NewRegistrationRepository returns the Postgres-backed registration store.
//
// Register and unregister are implemented as conditional atomic updates:
// the capacity precondition lives in the UPDATE's WHERE clause and the
// duplicate precondition in the registrants table's unique constraint, so
// both are checked by the database at write time. The counter UPDATE takes
// the event row lock, which serializes concurrent attempts on the same
// event; under READ COMMITTED the WHERE clause is re-evaluated against the
// committed row after any lock wait, so two racers for the last slot can
// never both pass.
func NewRegistrationRepository(db *sql.DB) domain.RegistrationStore {
	return &registrationRepository{
		DB: db,
	}
}

func (r *registrationRepository) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	query := `
		SELECT id, name, description, registration_required, capacity, registration_deadline, starts_at, fee_cents, registration_count, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	return scanEvent(r.DB.QueryRowContext(ctx, query, eventID))
}

// IsRegistered anchors the membership lookup on the events row so that a
// nonexistent event comes back as ErrNotFound rather than a silent
// "not registered", in one round trip.
func (r *registrationRepository) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM event_registrants r WHERE r.event_id = e.id AND r.user_id = $2
		)
		FROM events e
		WHERE e.id = $1
	`
	var registered bool
	if err := r.DB.QueryRowContext(ctx, query, eventID, userID).Scan(&registered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return registered, nil
}

func (r *registrationRepository) TryRegister(ctx context.Context, eventID, userID string, now time.Time) (domain.Decision, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DecisionUnknown, fmt.Errorf("begin register tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Membership precondition: the unique constraint on (event_id, user_id)
	// makes a duplicate insert affect zero rows.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO event_registrants (id, event_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, uuid.NewString(), eventID, userID, now)
	if err != nil {
		return domain.DecisionUnknown, classifyWriteError("insert registrant", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return domain.DecisionUnknown, fmt.Errorf("insert registrant rows: %w", err)
	}
	if inserted == 0 {
		// Read-after-failure classification: absent event vs duplicate.
		return r.classifyRegisterFailure(ctx, eventID, domain.DecisionAlreadyRegistered)
	}

	// Capacity precondition, checked by the engine at write time.
	res, err = tx.ExecContext(ctx, `
		UPDATE events
		SET registration_count = registration_count + 1, updated_at = $2
		WHERE id = $1 AND (capacity = 0 OR registration_count < capacity)
	`, eventID, now)
	if err != nil {
		return domain.DecisionUnknown, classifyWriteError("increment registration count", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return domain.DecisionUnknown, fmt.Errorf("increment rows: %w", err)
	}
	if updated == 0 {
		return r.classifyRegisterFailure(ctx, eventID, domain.DecisionEventFull)
	}

	if err := tx.Commit(); err != nil {
		return domain.DecisionUnknown, classifyWriteError("commit register tx", err)
	}
	return domain.DecisionRegistered, nil
}

func (r *registrationRepository) TryUnregister(ctx context.Context, eventID, userID string) (domain.Decision, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DecisionUnknown, fmt.Errorf("begin unregister tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		DELETE FROM event_registrants
		WHERE event_id = $1 AND user_id = $2
	`, eventID, userID)
	if err != nil {
		return domain.DecisionUnknown, classifyWriteError("delete registrant", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return domain.DecisionUnknown, fmt.Errorf("delete registrant rows: %w", err)
	}
	if deleted == 0 {
		// Removing an absent member is a no-op, reported distinctly.
		return r.classifyUnregisterFailure(ctx, eventID)
	}

	// GREATEST keeps the counter from going below zero even if the stored
	// state is already inconsistent.
	if _, err := tx.ExecContext(ctx, `
		UPDATE events
		SET registration_count = GREATEST(registration_count - 1, 0), updated_at = $2
		WHERE id = $1
	`, eventID, time.Now().UTC()); err != nil {
		return domain.DecisionUnknown, classifyWriteError("decrement registration count", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.DecisionUnknown, classifyWriteError("commit unregister tx", err)
	}
	return domain.DecisionUnregistered, nil
}

// Stats reads count, capacity and the actual registrant set size in one
// query and cross-checks them. A mismatch is surfaced as ErrCorruptState,
// never silently repaired.
func (r *registrationRepository) Stats(ctx context.Context, eventID string) (*domain.RegistrationStats, error) {
	query := `
		SELECT e.capacity, e.registration_count, COUNT(r.id)
		FROM events e
		LEFT JOIN event_registrants r ON r.event_id = e.id
		WHERE e.id = $1
		GROUP BY e.capacity, e.registration_count
	`
	var capacity, count, actual int
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&capacity, &count, &actual)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if count != actual {
		return nil, fmt.Errorf("event %s: counter %d vs %d registrants: %w", eventID, count, actual, domain.ErrCorruptState)
	}
	remaining := -1
	if capacity > 0 {
		remaining = capacity - count
		if remaining < 0 {
			remaining = 0
		}
	}
	return &domain.RegistrationStats{
		EventID:   eventID,
		Count:     count,
		Capacity:  capacity,
		Remaining: remaining,
	}, nil
}

func (r *registrationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	query := `
		SELECT id, event_id, user_id, created_at
		FROM event_registrants
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*domain.Registration
	for rows.Next() {
		reg := &domain.Registration{}
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.CreatedAt); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, nil
}

// classifyRegisterFailure re-reads the event after a failed precondition to
// distinguish a missing event from the given rejection. Reading after the
// failure (not before the write) keeps the check-then-act window closed.
func (r *registrationRepository) classifyRegisterFailure(ctx context.Context, eventID string, rejection domain.Decision) (domain.Decision, error) {
	_, err := r.GetEvent(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DecisionEventNotFound, nil
	}
	if err != nil {
		return domain.DecisionUnknown, fmt.Errorf("classify register failure: %w", err)
	}
	return rejection, nil
}

func (r *registrationRepository) classifyUnregisterFailure(ctx context.Context, eventID string) (domain.Decision, error) {
	_, err := r.GetEvent(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DecisionEventNotFound, nil
	}
	if err != nil {
		return domain.DecisionUnknown, fmt.Errorf("classify unregister failure: %w", err)
	}
	return domain.DecisionNotRegistered, nil
}

// classifyWriteError maps retryable Postgres failures to domain.ErrConflict
// so the registration service's retry loop can handle them, and a missing
// event (foreign key violation on insert) to domain.ErrNotFound.
func classifyWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected, pqQueryCanceled:
			return fmt.Errorf("%s: %w", op, domain.ErrConflict)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
