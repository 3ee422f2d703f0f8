package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"wabook/internal/domain"
)

// HandleSessionStatusUseCase keeps the session store in sync with connection
// update events published by the adapters. It is wired as the bus consumer
// for whatsapp.update.
type HandleSessionStatusUseCase struct {
	sessionRepo domain.Repository
}

// NewHandleSessionStatusUseCase creates a new instance of HandleSessionStatusUseCase
func NewHandleSessionStatusUseCase(sessionRepo domain.Repository) *HandleSessionStatusUseCase {
	return &HandleSessionStatusUseCase{sessionRepo: sessionRepo}
}

// Execute applies a status change to the stored session. If a low-level
// event arrives before an explicit create, the session row is created
// lazily.
func (uc *HandleSessionStatusUseCase) Execute(ctx context.Context, userID string, status domain.Status, phoneNumber string) error {
	session, err := uc.sessionRepo.GetByUserID(ctx, userID)
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}

		log.Info().
			Str("user_id", userID).
			Str("status", string(status)).
			Msg("Creating session from status event")

		session = domain.NewSession(userID)
		if err := session.UpdateStatus(status, phoneNumber); err != nil {
			return err
		}
		return uc.sessionRepo.Create(ctx, session)
	}

	log.Info().
		Str("user_id", userID).
		Str("from", string(session.Status)).
		Str("to", string(status)).
		Msg("Updating session status")

	if err := session.UpdateStatus(status, phoneNumber); err != nil {
		return err
	}
	return uc.sessionRepo.Update(ctx, session)
}

// HandleQR stores a freshly generated QR code on the session, creating the
// row lazily like Execute does.
func (uc *HandleSessionStatusUseCase) HandleQR(ctx context.Context, userID string, qrImageData string) error {
	session, err := uc.sessionRepo.GetByUserID(ctx, userID)
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		session = domain.NewSession(userID)
		session.SetQRCode(qrImageData)
		return uc.sessionRepo.Create(ctx, session)
	}

	session.SetQRCode(qrImageData)
	return uc.sessionRepo.Update(ctx, session)
}
