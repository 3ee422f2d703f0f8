package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"wabook/internal/services"
)

// MessageHandler handles HTTP requests for message operations
type MessageHandler struct {
	sendMessageUC *services.SendMessageUseCase
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(sendMessageUC *services.SendMessageUseCase) *MessageHandler {
	return &MessageHandler{sendMessageUC: sendMessageUC}
}

// SendMessage handles POST /messages/send
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req services.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response, err := h.sendMessageUC.Execute(r.Context(), req)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", req.UserID).
			Msg("Failed to send message")
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
