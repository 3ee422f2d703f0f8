package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Type    string
	Message string
	Code    string
}

func (e DomainError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// ValidationError represents a validation error
type ValidationError struct {
	DomainError
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		DomainError: DomainError{
			Type:    "VALIDATION_ERROR",
			Message: message,
			Code:    "VALIDATION_FAILED",
		},
	}
}

// BusinessError represents a business rule violation
type BusinessError struct {
	DomainError
}

// NewBusinessError creates a new business error
func NewBusinessError(message string) *BusinessError {
	return &BusinessError{
		DomainError: DomainError{
			Type:    "BUSINESS_ERROR",
			Message: message,
			Code:    "BUSINESS_RULE_VIOLATION",
		},
	}
}

// NotFoundError represents a not found error
type NotFoundError struct {
	DomainError
	Resource string
	ID       string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		DomainError: DomainError{
			Type:    "NOT_FOUND_ERROR",
			Message: fmt.Sprintf("%s with ID '%s' not found", resource, id),
			Code:    "RESOURCE_NOT_FOUND",
		},
		Resource: resource,
		ID:       id,
	}
}

// TransportInitError indicates that the local auth material or the WhatsApp
// transport could not be set up for a user. It propagates to the caller of
// connect; the create-session flow surfaces it as a generic failure.
type TransportInitError struct {
	DomainError
	UserID string
	Cause  error
}

// NewTransportInitError creates a new transport init error
func NewTransportInitError(userID string, cause error) *TransportInitError {
	return &TransportInitError{
		DomainError: DomainError{
			Type:    "TRANSPORT_INIT_ERROR",
			Message: fmt.Sprintf("failed to initialize transport for user '%s': %v", userID, cause),
			Code:    "TRANSPORT_INIT_FAILED",
		},
		UserID: userID,
		Cause:  cause,
	}
}

func (e *TransportInitError) Unwrap() error {
	return e.Cause
}

// NotConnectedError indicates a send was attempted while the user's adapter
// has no live transport.
type NotConnectedError struct {
	DomainError
	UserID string
}

// NewNotConnectedError creates a new not connected error
func NewNotConnectedError(userID string) *NotConnectedError {
	return &NotConnectedError{
		DomainError: DomainError{
			Type:    "NOT_CONNECTED_ERROR",
			Message: fmt.Sprintf("no live WhatsApp connection for user '%s'", userID),
			Code:    "NOT_CONNECTED",
		},
		UserID: userID,
	}
}

// NoActiveSessionError indicates an operation targeted a user with no
// registered adapter. Returned instead of silently dropping the call.
type NoActiveSessionError struct {
	DomainError
	UserID string
}

// NewNoActiveSessionError creates a new no active session error
func NewNoActiveSessionError(userID string) *NoActiveSessionError {
	return &NoActiveSessionError{
		DomainError: DomainError{
			Type:    "NO_ACTIVE_SESSION_ERROR",
			Message: fmt.Sprintf("no active WhatsApp session for user '%s'", userID),
			Code:    "NO_ACTIVE_SESSION",
		},
		UserID: userID,
	}
}

// Session-specific errors
func ErrSessionNotFound(userID string) error {
	return NewNotFoundError("Session", userID)
}

func ErrInvalidPhoneNumber(message string) error {
	return NewValidationError(fmt.Sprintf("invalid phone number: %s", message))
}
