package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusevents/internal/domain"
)

var eventColumns = []string{
	"id", "name", "description", "registration_required", "capacity",
	"registration_deadline", "starts_at", "fee_cents", "registration_count",
	"created_at", "updated_at",
}

func eventRow(id string, capacity, count int) *sqlmock.Rows {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(eventColumns).
		AddRow(id, "Open Day", "", true, capacity, nil, nil, int64(0), count, now, now)
}

func TestRegistrationRepository_TryRegister(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		want    domain.Decision
		wantErr error
	}{
		{
			name: "registered",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO event_registrants`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE events\s+SET registration_count = registration_count \+ 1`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			want: domain.DecisionRegistered,
		},
		{
			name: "already registered",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO event_registrants`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT id, name, description`).
					WithArgs("ev-1").
					WillReturnRows(eventRow("ev-1", 10, 3))
				mock.ExpectRollback()
			},
			want: domain.DecisionAlreadyRegistered,
		},
		{
			name: "event full",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO event_registrants`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE events\s+SET registration_count = registration_count \+ 1`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT id, name, description`).
					WithArgs("ev-1").
					WillReturnRows(eventRow("ev-1", 3, 3))
				mock.ExpectRollback()
			},
			want: domain.DecisionEventFull,
		},
		{
			name: "event vanished between checks",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO event_registrants`).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT id, name, description`).
					WithArgs("ev-1").
					WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			want: domain.DecisionEventNotFound,
		},
		{
			name: "missing event fails the foreign key",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO event_registrants`).
					WillReturnError(&pq.Error{Code: pq.ErrorCode(pqForeignKeyViolation)})
				mock.ExpectRollback()
			},
			want:    domain.DecisionUnknown,
			wantErr: domain.ErrNotFound,
		},
		{
			name: "serialization failure is a transient conflict",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO event_registrants`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE events\s+SET registration_count = registration_count \+ 1`).
					WillReturnError(&pq.Error{Code: pq.ErrorCode(pqSerializationFailure)})
				mock.ExpectRollback()
			},
			want:    domain.DecisionUnknown,
			wantErr: domain.ErrConflict,
		},
		{
			name: "cancelled query is a transient conflict",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO event_registrants`).
					WillReturnError(&pq.Error{Code: pq.ErrorCode(pqQueryCanceled)})
				mock.ExpectRollback()
			},
			want:    domain.DecisionUnknown,
			wantErr: domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			decision, err := repo.TryRegister(ctx, "ev-1", "user-1", now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, decision)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_TryUnregister(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		mock func(mock sqlmock.Sqlmock)
		want domain.Decision
	}{
		{
			name: "unregistered",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM event_registrants`).
					WithArgs("ev-1", "user-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE events\s+SET registration_count = GREATEST\(registration_count - 1, 0\)`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			want: domain.DecisionUnregistered,
		},
		{
			name: "not registered",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM event_registrants`).
					WithArgs("ev-1", "user-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT id, name, description`).
					WithArgs("ev-1").
					WillReturnRows(eventRow("ev-1", 10, 3))
				mock.ExpectRollback()
			},
			want: domain.DecisionNotRegistered,
		},
		{
			name: "event not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM event_registrants`).
					WithArgs("ev-1", "user-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`SELECT id, name, description`).
					WithArgs("ev-1").
					WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			want: domain.DecisionEventNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			decision, err := repo.TryUnregister(ctx, "ev-1", "user-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_IsRegistered(t *testing.T) {
	ctx := context.Background()

	t.Run("registered", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("ev-1", "user-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		repo := NewRegistrationRepository(db)
		registered, err := repo.IsRegistered(ctx, "ev-1", "user-1")
		require.NoError(t, err)
		assert.True(t, registered)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing event is not found, not unregistered", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("ghost", "user-1").
			WillReturnError(sql.ErrNoRows)

		repo := NewRegistrationRepository(db)
		_, err = repo.IsRegistered(ctx, "ghost", "user-1")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationRepository_Stats(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		want    *domain.RegistrationStats
		wantErr error
	}{
		{
			name: "capped event",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT e.capacity, e.registration_count, COUNT\(r.id\)`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"capacity", "registration_count", "count"}).
						AddRow(10, 4, 4))
			},
			want: &domain.RegistrationStats{EventID: "ev-1", Count: 4, Capacity: 10, Remaining: 6},
		},
		{
			name: "unlimited event",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT e.capacity, e.registration_count, COUNT\(r.id\)`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"capacity", "registration_count", "count"}).
						AddRow(0, 250, 250))
			},
			want: &domain.RegistrationStats{EventID: "ev-1", Count: 250, Capacity: 0, Remaining: -1},
		},
		{
			name: "corrupted counter is surfaced, not repaired",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT e.capacity, e.registration_count, COUNT\(r.id\)`).
					WithArgs("ev-1").
					WillReturnRows(sqlmock.NewRows([]string{"capacity", "registration_count", "count"}).
						AddRow(10, 5, 4))
			},
			wantErr: domain.ErrCorruptState,
		},
		{
			name: "missing event",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT e.capacity, e.registration_count, COUNT\(r.id\)`).
					WithArgs("ev-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			stats, err := repo.Stats(ctx, "ev-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_ListByUserID(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, event_id, user_id, created_at\s+FROM event_registrants`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "user_id", "created_at"}).
			AddRow("reg-2", "ev-2", "user-1", created.Add(time.Hour)).
			AddRow("reg-1", "ev-1", "user-1", created))

	repo := NewRegistrationRepository(db)
	regs, err := repo.ListByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "ev-2", regs[0].EventID)
	require.NoError(t, mock.ExpectationsWereMet())
}
