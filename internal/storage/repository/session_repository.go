package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"wabook/internal/domain"
)

// sessionRepository implements the domain.Repository interface
type sessionRepository struct {
	db *bun.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *bun.DB) domain.Repository {
	return &sessionRepository{db: db}
}

// Create stores a session. Upserts on user id: creating a session for a user
// who already has one overwrites the stored row, keeping the ensure-session
// path idempotent.
func (r *sessionRepository) Create(ctx context.Context, sess *domain.Session) error {
	_, err := r.db.NewInsert().
		Model(sess).
		On("CONFLICT (user_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("phone_number = EXCLUDED.phone_number").
		Set("qr_code = EXCLUDED.qr_code").
		Set("retry_count = EXCLUDED.retry_count").
		Set("max_retries = EXCLUDED.max_retries").
		Set("last_activity = EXCLUDED.last_activity").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		log.Error().Err(err).Str("user_id", sess.UserID).Msg("Failed to create session")
		return fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("user_id", sess.UserID).
		Msg("Session created")
	return nil
}

// GetByID retrieves a session by its ID
func (r *sessionRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	session := new(domain.Session)
	err := r.db.NewSelect().
		Model(session).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("Session", id.String())
		}
		log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to get session by ID")
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// GetByUserID retrieves a session by the owning user id
func (r *sessionRepository) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	session := new(domain.Session)
	err := r.db.NewSelect().
		Model(session).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound(userID)
		}
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to get session by user ID")
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// GetAll retrieves all sessions. Bootstrap only; not indexed for hot paths.
func (r *sessionRepository) GetAll(ctx context.Context) ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := r.db.NewSelect().
		Model(&sessions).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		log.Error().Err(err).Msg("Failed to get all sessions")
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}

	return sessions, nil
}

// GetConnectedSessions retrieves all sessions currently marked connected
func (r *sessionRepository) GetConnectedSessions(ctx context.Context) ([]*domain.Session, error) {
	var sessions []*domain.Session
	err := r.db.NewSelect().
		Model(&sessions).
		Where("status = ?", domain.StatusConnected).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		log.Error().Err(err).Msg("Failed to get connected sessions")
		return nil, fmt.Errorf("failed to get connected sessions: %w", err)
	}

	return sessions, nil
}

// Update updates an existing session. Last write wins.
func (r *sessionRepository) Update(ctx context.Context, sess *domain.Session) error {
	result, err := r.db.NewUpdate().
		Model(sess).
		Where("id = ?", sess.ID).
		Exec(ctx)

	if err != nil {
		log.Error().Err(err).Str("user_id", sess.UserID).Msg("Failed to update session")
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrSessionNotFound(sess.UserID)
	}

	return nil
}

// Delete removes a session by user id
func (r *sessionRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.NewDelete().
		Model((*domain.Session)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to delete session")
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrSessionNotFound(userID)
	}

	log.Info().Str("user_id", userID).Msg("Session deleted")
	return nil
}
