package domain

import (
	"strings"
)

// PhoneNumber is a normalized phone number. Only digits are kept; the wire
// address is derived from it.
type PhoneNumber string

// NewPhoneNumber normalizes and validates a raw phone number string.
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidPhoneNumber(raw)
	}

	return PhoneNumber(digits), nil
}

// String returns the normalized digits
func (p PhoneNumber) String() string {
	return string(p)
}

// JID returns the WhatsApp wire address for this number
func (p PhoneNumber) JID() string {
	return string(p) + "@s.whatsapp.net"
}
