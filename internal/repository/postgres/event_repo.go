package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"campusevents/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns an EventRepository backed by Postgres.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	query := `
		INSERT INTO events (id, name, description, registration_required, capacity, registration_deadline, starts_at, fee_cents, registration_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)
	`
	_, err := r.DB.ExecContext(ctx, query,
		event.ID, event.Name, event.Description, event.RegistrationRequired,
		event.Capacity, event.RegistrationDeadline, event.StartsAt,
		event.FeeCents, event.CreatedAt, event.UpdatedAt,
	)
	return err
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, name, description, registration_required, capacity, registration_deadline, starts_at, fee_cents, registration_count, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	event := &domain.Event{}
	var deadline, startsAt sql.NullTime
	err := row.Scan(
		&event.ID, &event.Name, &event.Description, &event.RegistrationRequired,
		&event.Capacity, &deadline, &startsAt, &event.FeeCents,
		&event.RegistrationCount, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if deadline.Valid {
		event.RegistrationDeadline = &deadline.Time
	}
	if startsAt.Valid {
		event.StartsAt = &startsAt.Time
	}
	return event, nil
}
