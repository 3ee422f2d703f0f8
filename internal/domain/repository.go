package domain

import (
	"context"
)

// Repository persists sessions keyed by user id. Create upserts: a second
// create for the same user id overwrites the stored row, which keeps the
// notification provider's ensure-session path idempotent.
type Repository interface {
	// Create stores a session, upserting on user id
	Create(ctx context.Context, session *Session) error

	// GetByID retrieves a session by its ID
	GetByID(ctx context.Context, id SessionID) (*Session, error)

	// GetByUserID retrieves a session by the owning user id
	GetByUserID(ctx context.Context, userID string) (*Session, error)

	// GetAll retrieves all sessions. Intended for process bootstrap only.
	GetAll(ctx context.Context) ([]*Session, error)

	// GetConnectedSessions retrieves all sessions currently marked connected
	GetConnectedSessions(ctx context.Context) ([]*Session, error)

	// Update updates an existing session
	Update(ctx context.Context, session *Session) error

	// Delete removes a session by user id (administrative cleanup)
	Delete(ctx context.Context, userID string) error
}

// NotificationProvider routes outbound WhatsApp operations to the adapter
// registered for a user.
type NotificationProvider interface {
	// Connect ensures an initialized adapter exists for the session's user.
	// Idempotent: an already registered adapter is left untouched.
	Connect(ctx context.Context, session *Session) error

	// Logout gracefully terminates and unregisters the user's adapter.
	// A missing adapter is a logged no-op.
	Logout(ctx context.Context, userID string) error

	// SendMessage sends a message through the user's adapter. Returns
	// NoActiveSessionError when no adapter is registered.
	SendMessage(ctx context.Context, userID string, phone PhoneNumber, content MessageContent) error
}
