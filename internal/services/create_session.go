// Package services contains the application use cases bridging the HTTP
// surface, the session store and the WhatsApp notification provider.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"wabook/internal/domain"
	"wabook/internal/events"
)

// CreateSessionRequest represents the request to create a WhatsApp session
type CreateSessionRequest struct {
	UserID string `json:"user_id" validate:"required,min=1,max=255"`
}

// CreateSessionResponse represents the outcome of a session creation
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Connected bool   `json:"connected"`
	QRCode    string `json:"qr_code,omitempty"`
}

// CreateSessionUseCase ensures an adapter exists for the user and blocks
// until the transport produces a QR challenge or connects, whichever comes
// first.
type CreateSessionUseCase struct {
	sessionRepo domain.Repository
	provider    domain.NotificationProvider
	waiter      *events.Waiter
	waitTimeout time.Duration
}

// NewCreateSessionUseCase creates a new instance of CreateSessionUseCase
func NewCreateSessionUseCase(
	sessionRepo domain.Repository,
	provider domain.NotificationProvider,
	waiter *events.Waiter,
	waitTimeout time.Duration,
) *CreateSessionUseCase {
	if waitTimeout <= 0 {
		waitTimeout = events.DefaultWaitTimeout
	}
	return &CreateSessionUseCase{
		sessionRepo: sessionRepo,
		provider:    provider,
		waiter:      waiter,
		waitTimeout: waitTimeout,
	}
}

// Execute creates a session for the user. An already connected session
// returns immediately without touching the adapter registry. A timeout while
// waiting for the QR or connected event is surfaced as events.ErrWaitTimeout
// so callers can offer a retry.
func (uc *CreateSessionUseCase) Execute(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	log.Info().Str("user_id", req.UserID).Msg("Creating WhatsApp session")

	session, err := uc.sessionRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		session = domain.NewSession(req.UserID)
		if err := uc.sessionRepo.Create(ctx, session); err != nil {
			return nil, err
		}
	} else if session.IsConnected() {
		log.Info().Str("user_id", req.UserID).Msg("Session already connected")
		return &CreateSessionResponse{
			SessionID: session.ID.String(),
			UserID:    session.UserID,
			Connected: true,
		}, nil
	}

	if err := uc.provider.Connect(ctx, session); err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to connect session")
		return nil, err
	}

	event, err := uc.waiter.WaitForSessionReady(ctx, req.UserID, uc.waitTimeout)
	if err != nil {
		log.Warn().Err(err).Str("user_id", req.UserID).Msg("No QR or connection event received in time")
		return nil, err
	}

	log.Info().
		Str("user_id", req.UserID).
		Bool("connected", event.Connected).
		Bool("has_qr", event.QRCode != "").
		Msg("Session ready event received")

	return &CreateSessionResponse{
		SessionID: session.ID.String(),
		UserID:    session.UserID,
		Connected: event.Connected,
		QRCode:    event.QRCode,
	}, nil
}
