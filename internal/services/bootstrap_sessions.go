package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"wabook/internal/domain"
)

// BootstrapSessionsUseCase reconnects previously connected sessions after a
// process restart. Adapters are runtime resources; they are rebuilt from the
// persisted session rows plus the on-disk auth material.
type BootstrapSessionsUseCase struct {
	sessionRepo domain.Repository
	provider    domain.NotificationProvider
}

// NewBootstrapSessionsUseCase creates a new instance of BootstrapSessionsUseCase
func NewBootstrapSessionsUseCase(sessionRepo domain.Repository, provider domain.NotificationProvider) *BootstrapSessionsUseCase {
	return &BootstrapSessionsUseCase{
		sessionRepo: sessionRepo,
		provider:    provider,
	}
}

// Execute reconnects every session marked connected. Individual failures are
// logged and do not stop the remaining sessions from reconnecting.
func (uc *BootstrapSessionsUseCase) Execute(ctx context.Context) error {
	sessions, err := uc.sessionRepo.GetAll(ctx)
	if err != nil {
		return err
	}

	log.Info().Int("total", len(sessions)).Msg("Hydrating sessions")

	reconnected := 0
	for _, session := range sessions {
		if !session.IsConnected() {
			continue
		}

		if err := uc.provider.Connect(ctx, session); err != nil {
			log.Error().
				Err(err).
				Str("user_id", session.UserID).
				Msg("Failed to reconnect session on bootstrap")
			continue
		}
		reconnected++
	}

	log.Info().Int("reconnected", reconnected).Msg("Session bootstrap completed")
	return nil
}
