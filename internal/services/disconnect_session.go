package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"wabook/internal/domain"
)

// DisconnectSessionRequest represents the request to disconnect a session
type DisconnectSessionRequest struct {
	UserID string `json:"user_id" validate:"required,min=1,max=255"`
}

// DisconnectSessionUseCase logs a user out of their WhatsApp session.
type DisconnectSessionUseCase struct {
	sessionRepo domain.Repository
	provider    domain.NotificationProvider
}

// NewDisconnectSessionUseCase creates a new instance of DisconnectSessionUseCase
func NewDisconnectSessionUseCase(sessionRepo domain.Repository, provider domain.NotificationProvider) *DisconnectSessionUseCase {
	return &DisconnectSessionUseCase{
		sessionRepo: sessionRepo,
		provider:    provider,
	}
}

// Execute disconnects the user's session. A user with no session record gets
// a not-found error; a session that is not connected gets a business error.
func (uc *DisconnectSessionUseCase) Execute(ctx context.Context, req DisconnectSessionRequest) error {
	session, err := uc.sessionRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return err
	}

	if !session.IsConnected() {
		return domain.NewBusinessError("no active session for user " + req.UserID)
	}

	if err := uc.provider.Logout(ctx, req.UserID); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to logout session")
		return err
	}

	log.Info().Str("user_id", req.UserID).Msg("Session disconnected")
	return nil
}
