package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"wabook/internal/domain"
)

// SendMessageRequest represents the request to send a WhatsApp message
type SendMessageRequest struct {
	UserID      string                `json:"user_id" validate:"required,min=1,max=255"`
	PhoneNumber string                `json:"phone_number" validate:"required,min=8,max=20"`
	Content     domain.MessageContent `json:"content"`
}

// SendMessageResponse represents the outcome of a send
type SendMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SendMessageUseCase sends a message through a user's connected session.
type SendMessageUseCase struct {
	sessionRepo domain.Repository
	provider    domain.NotificationProvider
}

// NewSendMessageUseCase creates a new instance of SendMessageUseCase
func NewSendMessageUseCase(sessionRepo domain.Repository, provider domain.NotificationProvider) *SendMessageUseCase {
	return &SendMessageUseCase{
		sessionRepo: sessionRepo,
		provider:    provider,
	}
}

// Execute sends the message. The session must exist and be connected, and
// the phone number is normalized before it reaches the adapter. Sending
// against a missing adapter surfaces an error rather than a silent drop.
func (uc *SendMessageUseCase) Execute(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error) {
	if req.Content.Text == "" {
		return nil, domain.NewValidationError("message text cannot be empty")
	}

	session, err := uc.sessionRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if !session.IsConnected() {
		return nil, domain.NewNotConnectedError(req.UserID)
	}

	phone, err := domain.NewPhoneNumber(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if err := uc.provider.SendMessage(ctx, req.UserID, phone, req.Content); err != nil {
		log.Error().
			Err(err).
			Str("user_id", req.UserID).
			Str("phone", phone.String()).
			Msg("Failed to send message")
		return nil, err
	}

	log.Info().
		Str("user_id", req.UserID).
		Str("phone", phone.String()).
		Msg("Message sent successfully")

	return &SendMessageResponse{
		Success: true,
		Message: "message sent successfully",
	}, nil
}
