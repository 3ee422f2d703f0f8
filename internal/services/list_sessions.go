package services

import (
	"context"

	"wabook/internal/domain"
)

// SessionSummary is the listing view of a session
type SessionSummary struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	LastActivity string `json:"last_activity"`
	CreatedAt    string `json:"created_at"`
}

// ListSessionsUseCase lists all sessions for administrative views.
type ListSessionsUseCase struct {
	sessionRepo domain.Repository
}

// NewListSessionsUseCase creates a new instance of ListSessionsUseCase
func NewListSessionsUseCase(sessionRepo domain.Repository) *ListSessionsUseCase {
	return &ListSessionsUseCase{sessionRepo: sessionRepo}
}

// Execute returns a summary of every session
func (uc *ListSessionsUseCase) Execute(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := uc.sessionRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:           s.ID.String(),
			UserID:       s.UserID,
			Status:       string(s.Status),
			PhoneNumber:  s.PhoneNumber,
			LastActivity: s.LastActivity.Format("2006-01-02T15:04:05Z07:00"),
			CreatedAt:    s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return summaries, nil
}
