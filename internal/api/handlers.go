// Package api exposes HTTP handlers for the activity signup service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"example.com/signup/internal/domain"
	"example.com/signup/internal/observability"
)

const activitiesPrefix = "/activities/"

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger.Named("api")}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/activities", h.activities)
	mux.HandleFunc(activitiesPrefix, h.activityRoutes)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	h.listActivities(w, r)
}

// activityRoutes dispatches /activities/{name}[/signup|/unregister|/participants].
// A bare /activities/ is the list.
func (h *Handler) activityRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.Trim(strings.TrimPrefix(r.URL.EscapedPath(), activitiesPrefix), "/") == "" {
		h.activities(w, r)
		return
	}

	name, action, err := splitActivityPath(r.URL.EscapedPath())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getActivity(w, r, name)
	case action == "signup" && r.Method == http.MethodPost:
		h.signup(w, r, name)
	case action == "unregister" && r.Method == http.MethodPost,
		action == "participants" && r.Method == http.MethodDelete:
		h.unregister(w, r, name)
	case action == "" || action == "signup" || action == "unregister" || action == "participants":
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
	}
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.serverError(w, "list activities", err)
		return
	}

	resp := make(ActivitiesResponse, len(activities))
	for _, activity := range activities {
		resp[activity.Name] = toActivityView(activity)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, name string) {
	activity, err := h.service.GetActivity(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Activity not found")
			return
		}
		h.serverError(w, "get activity", err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityDetail{
		Name:         activity.Name,
		ActivityView: toActivityView(*activity),
		SpotsLeft:    activity.SpotsLeft(),
	})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request, name string) {
	email := r.URL.Query().Get("email")
	activity, err := h.service.Signup(r.Context(), name, email)
	if err != nil {
		h.membershipError(w, observability.OperationSignup, err)
		return
	}
	observability.RecordMembership(observability.OperationSignup, observability.OutcomeOK)
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Signed up %s for %s", strings.TrimSpace(email), activity.Name),
	})
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request, name string) {
	email := r.URL.Query().Get("email")
	activity, err := h.service.Unregister(r.Context(), name, email)
	if err != nil {
		h.membershipError(w, observability.OperationUnregister, err)
		return
	}
	observability.RecordMembership(observability.OperationUnregister, observability.OutcomeOK)
	writeJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Unregistered %s from %s", strings.TrimSpace(email), activity.Name),
	})
}

func (h *Handler) membershipError(w http.ResponseWriter, operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		observability.RecordMembership(operation, observability.OutcomeNotFound)
		writeError(w, http.StatusNotFound, "not_found", "Activity not found")
	case errors.Is(err, domain.ErrAlreadySignedUp):
		observability.RecordMembership(operation, observability.OutcomeRejected)
		writeError(w, http.StatusBadRequest, "already_signed_up", "Student already signed up for this activity")
	case errors.Is(err, domain.ErrNotSignedUp):
		observability.RecordMembership(operation, observability.OutcomeRejected)
		writeError(w, http.StatusBadRequest, "not_signed_up", "Student is not signed up for this activity")
	case errors.Is(err, domain.ErrInvalidEmail):
		observability.RecordMembership(operation, observability.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, "validation_failed", "email query parameter is required")
	default:
		observability.RecordMembership(operation, observability.OutcomeError)
		h.serverError(w, operation, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "server_error", "internal error")
}

// splitActivityPath extracts the unescaped activity name and optional action
// from an escaped request path.
func splitActivityPath(escaped string) (name, action string, err error) {
	rest := strings.Trim(strings.TrimPrefix(escaped, activitiesPrefix), "/")
	if rest == "" {
		return "", "", errors.New("missing activity name")
	}
	parts := strings.Split(rest, "/")
	if len(parts) > 2 {
		return "", "", errors.New("unexpected path segments")
	}
	name, err = url.PathUnescape(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("invalid activity name: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		return "", "", errors.New("missing activity name")
	}
	if len(parts) == 2 {
		action = parts[1]
	}
	return name, action, nil
}

// ActivityView is the public shape of an activity record.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// ActivitiesResponse maps activity name to its record.
type ActivitiesResponse map[string]ActivityView

// ActivityDetail is returned by GET /activities/{name}.
type ActivityDetail struct {
	Name string `json:"name"`
	ActivityView
	SpotsLeft int `json:"spots_left"`
}

// MessageResponse confirms a roster change.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(activity domain.Activity) ActivityView {
	participants := activity.Participants
	if participants == nil {
		participants = []string{}
	}
	return ActivityView{
		Description:     activity.Description,
		Schedule:        activity.Schedule,
		MaxParticipants: activity.MaxParticipants,
		Participants:    participants,
	}
}
