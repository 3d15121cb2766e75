package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusevents/internal/domain"
)

type fakeEventService struct {
	event *domain.Event
	err   error
}

func (f *fakeEventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	if f.err != nil {
		return f.err
	}
	event.ID = testEventID
	return nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	return f.event, f.err
}

func TestEventController_CreateEvent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})
		body := `{"name":"Open Day","registration_required":true,"capacity":50,"fee_cents":500}`
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
		rec := httptest.NewRecorder()

		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp struct {
			Data domain.Event `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, testEventID, resp.Data.ID)
		assert.Equal(t, 50, resp.Data.Capacity)
	})

	t.Run("validation failure", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})
		body := `{"name":"","capacity":-1}`
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
		rec := httptest.NewRecorder()

		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deadline after start", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})
		starts := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
		deadline := starts.Add(time.Hour)
		payload, err := json.Marshal(CreateEventRequest{
			Name:                 "Open Day",
			RegistrationDeadline: &deadline,
			StartsAt:             &starts,
		})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(string(payload)))
		rec := httptest.NewRecorder()

		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})
		body := `{"name":"Open Day","registration_count":10}`
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
		rec := httptest.NewRecorder()

		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEventController_GetEvent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{event: &domain.Event{ID: testEventID, Name: "Open Day"}})
		req := httptest.NewRequest(http.MethodGet, "/events/"+testEventID, nil)
		req.SetPathValue("eventID", testEventID)
		rec := httptest.NewRecorder()

		c.GetEvent(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{err: domain.ErrNotFound})
		req := httptest.NewRequest(http.MethodGet, "/events/"+testEventID, nil)
		req.SetPathValue("eventID", testEventID)
		rec := httptest.NewRecorder()

		c.GetEvent(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid event id", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{})
		req := httptest.NewRequest(http.MethodGet, "/events/nope", nil)
		req.SetPathValue("eventID", "nope")
		rec := httptest.NewRecorder()

		c.GetEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
