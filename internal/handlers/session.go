package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"wabook/internal/domain"
	"wabook/internal/events"
	"wabook/internal/services"
)

var validate = validator.New()

// SessionHandler handles HTTP requests for WhatsApp session operations
type SessionHandler struct {
	createSessionUC     *services.CreateSessionUseCase
	disconnectSessionUC *services.DisconnectSessionUseCase
	listSessionsUC      *services.ListSessionsUseCase
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	createSessionUC *services.CreateSessionUseCase,
	disconnectSessionUC *services.DisconnectSessionUseCase,
	listSessionsUC *services.ListSessionsUseCase,
) *SessionHandler {
	return &SessionHandler{
		createSessionUC:     createSessionUC,
		disconnectSessionUC: disconnectSessionUC,
		listSessionsUC:      listSessionsUC,
	}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response, err := h.createSessionUC.Execute(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to create session")
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// DisconnectSession handles DELETE /sessions/{userID}
func (h *SessionHandler) DisconnectSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	err := h.disconnectSessionUC.Execute(r.Context(), services.DisconnectSessionRequest{UserID: userID})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to disconnect session")
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /sessions/list
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.listSessionsUC.Execute(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list sessions")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// writeError maps domain errors onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, events.ErrWaitTimeout) {
		http.Error(w, "Timed out waiting for QR or connection, please retry", http.StatusGatewayTimeout)
		return
	}
	if errors.Is(err, events.ErrWaitInFlight) {
		http.Error(w, "A session creation is already in progress for this user", http.StatusConflict)
		return
	}

	var (
		validationErr   *domain.ValidationError
		businessErr     *domain.BusinessError
		notFoundErr     *domain.NotFoundError
		notConnectedErr *domain.NotConnectedError
		noSessionErr    *domain.NoActiveSessionError
	)

	switch {
	case errors.As(err, &validationErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &businessErr):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &notConnectedErr), errors.As(err, &noSessionErr):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
