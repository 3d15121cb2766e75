package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"campusevents/internal/delivery/http/helpers"
	"campusevents/internal/delivery/http/middleware"
	"campusevents/internal/domain"
)

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
	Query   domain.QueryService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService, query domain.QueryService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
		Query:   query,
	}
}

// RegistrationOutcome is the payload returned by register and unregister.
// swagger:model RegistrationOutcome
type RegistrationOutcome struct {
	EventID  string `json:"event_id"`
	UserID   string `json:"user_id"`
	Decision string `json:"decision"`
}

// RegistrationOutcomeResponse is the response envelope for registration operations.
type RegistrationOutcomeResponse struct {
	Data  *RegistrationOutcome `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// decisionStatus maps a decision to the HTTP status of the operation.
func decisionStatus(d domain.Decision) int {
	switch d {
	case domain.DecisionRegistered:
		return http.StatusCreated
	case domain.DecisionUnregistered, domain.DecisionRegistrationNotRequired:
		return http.StatusOK
	case domain.DecisionEventNotFound:
		return http.StatusNotFound
	case domain.DecisionAlreadyRegistered, domain.DecisionEventFull,
		domain.DecisionDeadlinePassed, domain.DecisionNotRegistered:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeOutcome writes the decision with its mapped status. Domain
// rejections keep the outcome in data so clients can switch on the
// decision, alongside a machine-readable error code.
func (c *RegistrationController) writeOutcome(w http.ResponseWriter, eventID, userID string, decision domain.Decision) {
	status := decisionStatus(decision)
	outcome := &RegistrationOutcome{EventID: eventID, UserID: userID, Decision: decision.String()}
	resp := helpers.APIResponse{Data: outcome}
	if status >= http.StatusBadRequest {
		resp.Error = &helpers.APIError{Code: errCodeForDecision(decision), Message: decision.String()}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func errCodeForDecision(d domain.Decision) string {
	if d == domain.DecisionEventNotFound {
		return helpers.ErrCodeNotFound
	}
	return helpers.ErrCodeConflict
}

// handleServiceError writes the response for a non-nil service error,
// distinguishing retryable contention from hard failures.
func (c *RegistrationController) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrContended) {
		w.Header().Set("Retry-After", "1")
		helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeRetryLater, "operation contended, retry later")
		return
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
}

// eventIDAndUser extracts and validates the path event ID and the
// authenticated user, writing the error response itself on failure.
func (c *RegistrationController) eventIDAndUser(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return "", "", false
	}
	if !uuidRegex.MatchString(eventID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return "", "", false
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", "", false
	}
	return eventID, userID, true
}

// Register godoc
// @Summary Register the current user for an event
// @Description Registers the authenticated user for the specified event, enforcing the attendance cap, the registration deadline, and once-per-user registration. Rejections are reported as distinct decisions, never as generic errors.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RegistrationOutcomeResponse "decision: registered"
// @Success 200 {object} controllers.RegistrationOutcomeResponse "decision: registration_not_required"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} controllers.RegistrationOutcomeResponse "decision: event_not_found"
// @Failure 409 {object} controllers.RegistrationOutcomeResponse "decision: already_registered | event_full | deadline_passed"
// @Failure 503 {object} helpers.APIResponse "error.code: retry_later"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	eventID, userID, ok := c.eventIDAndUser(w, r)
	if !ok {
		return
	}

	decision, err := c.Service.Register(r.Context(), eventID, userID)
	if err != nil {
		c.handleServiceError(w, r, err)
		return
	}
	c.writeOutcome(w, eventID, userID, decision)
}

// Unregister godoc
// @Summary Unregister the current user from an event
// @Description Removes the authenticated user's registration. Allowed until the event starts; unregistering when not registered reports decision not_registered.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegistrationOutcomeResponse "decision: unregistered"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} controllers.RegistrationOutcomeResponse "decision: event_not_found"
// @Failure 409 {object} controllers.RegistrationOutcomeResponse "decision: not_registered | deadline_passed"
// @Failure 503 {object} helpers.APIResponse "error.code: retry_later"
// @Router /events/{eventID}/registrations [delete]
func (c *RegistrationController) Unregister(w http.ResponseWriter, r *http.Request) {
	eventID, userID, ok := c.eventIDAndUser(w, r)
	if !ok {
		return
	}

	decision, err := c.Service.Unregister(r.Context(), eventID, userID)
	if err != nil {
		c.handleServiceError(w, r, err)
		return
	}
	c.writeOutcome(w, eventID, userID, decision)
}

// IsRegisteredData is the payload for GET /events/{eventID}/registrations/me.
type IsRegisteredData struct {
	EventID    string `json:"event_id"`
	UserID     string `json:"user_id"`
	Registered bool   `json:"registered"`
}

// IsRegistered godoc
// @Summary Check whether the current user is registered
// @Description Read-only projection; may be slightly stale and must not drive registration decisions client-side.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations/me [get]
func (c *RegistrationController) IsRegistered(w http.ResponseWriter, r *http.Request) {
	eventID, userID, ok := c.eventIDAndUser(w, r)
	if !ok {
		return
	}

	registered, err := c.Query.IsRegistered(r.Context(), eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, IsRegisteredData{
		EventID:    eventID,
		UserID:     userID,
		Registered: registered,
	})
}

// Stats godoc
// @Summary Registration stats for an event
// @Description Returns count, capacity and remaining slots (-1 when unlimited). Served from a short-TTL cache.
// @Tags registrations
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations/stats [get]
func (c *RegistrationController) Stats(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" || !uuidRegex.MatchString(eventID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid eventID")
		return
	}

	stats, err := c.Query.RegistrationStats(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
		c.handleServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}

// ListMyRegistrations godoc
// @Summary Events the current user is registered for
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of registration + event objects"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me/registrations [get]
func (c *RegistrationController) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	items, err := c.Query.ListMyRegistrations(r.Context(), userID)
	if err != nil {
		c.handleServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []*domain.RegistrationWithEvent{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}
