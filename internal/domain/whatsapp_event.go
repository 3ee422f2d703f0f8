package domain

import (
	"time"
)

// QRGeneratedEvent is published when the transport issues a QR challenge.
// QRImageData is a base64 PNG data URL ready for display.
type QRGeneratedEvent struct {
	UserID      string `json:"user_id"`
	QRImageData string `json:"qr_image_data"`
}

// ConnectionUpdateEvent is published on every connection status change and
// consumed to keep the session store in sync.
type ConnectionUpdateEvent struct {
	UserID      string `json:"user_id"`
	Status      Status `json:"status"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ConfirmPayload carries the appointment confirmation data extracted from a
// button reply.
type ConfirmPayload struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	ButtonLabel   string `json:"button_label,omitempty"`
}

// MessageReceivedEvent is published for every inbound chat message that is
// neither self-sent nor empty. Downstream appointment handlers consume it.
type MessageReceivedEvent struct {
	UserID    string         `json:"user_id"`
	From      string         `json:"from"`
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
	Confirm   ConfirmPayload `json:"confirm"`
}

// SessionCleanupRequestedEvent is published when a close is classified as a
// bad session and the adapter must be torn down.
type SessionCleanupRequestedEvent struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// MessageContent is the outbound message payload. Template rendering happens
// upstream; the adapter only ships the result.
type MessageContent struct {
	Text    string          `json:"text"`
	Buttons []MessageButton `json:"buttons,omitempty"`
}

// MessageButton is an interactive reply button attached to an outbound
// message. ID round-trips through the button reply as the appointment id.
type MessageButton struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
