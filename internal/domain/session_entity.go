package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionID represents a unique session identifier
type SessionID string

// NewSessionID generates a new unique session ID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// String returns the string representation of SessionID
func (id SessionID) String() string {
	return string(id)
}

// IsValid checks if the session ID is valid
func (id SessionID) IsValid() bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(string(id))
	return err == nil
}

// Status represents the session connection status
type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
	StatusQRGenerated  Status = "QR_GENERATED"
	StatusError        Status = "ERROR"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusDisconnected, StatusConnecting, StatusConnected, StatusQRGenerated, StatusError:
		return true
	default:
		return false
	}
}

// Session represents one user's WhatsApp connection state. It is a passive
// record: the retry budget is tracked here but enforced by the connection
// adapter, and QR_GENERATED is reachable only through SetQRCode because the
// transition carries the code payload.
type Session struct {
	bun.BaseModel `bun:"table:whatsapp_sessions,alias:ws"`

	ID             SessionID  `bun:",pk" json:"id"`
	UserID         string     `bun:"user_id,notnull,unique" json:"user_id"`
	Status         Status     `bun:",notnull,default:'DISCONNECTED'" json:"status"`
	PhoneNumber    string     `bun:"phone_number" json:"phone_number,omitempty"`
	QRCode         string     `bun:"qr_code" json:"qr_code,omitempty"`
	RetryCount     int        `bun:"retry_count,notnull,default:0" json:"retry_count"`
	MaxRetries     int        `bun:"max_retries,notnull,default:3" json:"max_retries"`
	LastActivity   time.Time  `bun:"last_activity,nullzero,notnull,default:current_timestamp" json:"last_activity"`
	ConnectedAt    *time.Time `bun:"connected_at,nullzero" json:"connected_at,omitempty"`
	DisconnectedAt *time.Time `bun:"disconnected_at,nullzero" json:"disconnected_at,omitempty"`
	CreatedAt      time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// NewSession creates a new session for the given user, starting disconnected.
func NewSession(userID string) *Session {
	now := time.Now()
	return &Session{
		ID:           NewSessionID(),
		UserID:       userID,
		Status:       StatusDisconnected,
		RetryCount:   0,
		MaxRetries:   3,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SetQRCode stores a freshly generated QR code and moves the session into
// QR_GENERATED. This is the only way to reach that status.
func (s *Session) SetQRCode(qrCode string) {
	s.QRCode = qrCode
	s.Status = StatusQRGenerated
	s.UpdatedAt = time.Now()
}

// MarkConnected moves the session into CONNECTED, clearing the QR code and
// resetting the retry budget. The phone number is recorded once known.
func (s *Session) MarkConnected(phoneNumber string) {
	now := time.Now()
	s.Status = StatusConnected
	s.ConnectedAt = &now
	s.RetryCount = 0
	s.QRCode = ""
	if phoneNumber != "" {
		s.PhoneNumber = phoneNumber
	}
	s.UpdatedAt = now
}

// MarkConnecting moves the session into CONNECTING.
func (s *Session) MarkConnecting() {
	s.Status = StatusConnecting
	s.UpdatedAt = time.Now()
}

// Disconnect moves the session into DISCONNECTED and clears the QR code.
// The record itself is kept; an explicit logout changes status only.
func (s *Session) Disconnect() {
	now := time.Now()
	s.Status = StatusDisconnected
	s.DisconnectedAt = &now
	s.QRCode = ""
	s.UpdatedAt = now
}

// MarkError moves the session into ERROR. The state holds until an explicit
// new connect.
func (s *Session) MarkError() {
	s.Status = StatusError
	s.UpdatedAt = time.Now()
}

// IncrementRetry bumps the reconnect attempt counter.
func (s *Session) IncrementRetry() {
	s.RetryCount++
	s.UpdatedAt = time.Now()
}

// UpdateActivity refreshes the last-activity timestamp.
func (s *Session) UpdateActivity() {
	now := time.Now()
	s.LastActivity = now
	s.UpdatedAt = now
}

// UpdateStatus dispatches to the guarded mutator matching the new status.
// QR_GENERATED is ignored here: it carries the code payload and is handled
// by SetQRCode.
func (s *Session) UpdateStatus(newStatus Status, phoneNumber string) error {
	switch newStatus {
	case StatusConnected:
		s.MarkConnected(phoneNumber)
	case StatusDisconnected:
		s.Disconnect()
	case StatusConnecting:
		s.MarkConnecting()
	case StatusError:
		s.MarkError()
	case StatusQRGenerated:
		// reachable only via SetQRCode
	default:
		return NewValidationError(fmt.Sprintf("invalid session status: %s", newStatus))
	}
	return nil
}

// IsConnected checks if the session is connected
func (s *Session) IsConnected() bool {
	return s.Status == StatusConnected
}

// CanRetry checks if the reconnect budget is not yet exhausted
func (s *Session) CanRetry() bool {
	return s.RetryCount < s.MaxRetries
}
