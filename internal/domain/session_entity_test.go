package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	session := NewSession("user-1")

	assert.True(t, session.ID.IsValid())
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, StatusDisconnected, session.Status)
	assert.Equal(t, 0, session.RetryCount)
	assert.Equal(t, 3, session.MaxRetries)
	assert.Nil(t, session.ConnectedAt)
	assert.Empty(t, session.QRCode)
}

func TestSession_SetQRCode(t *testing.T) {
	session := NewSession("user-1")

	session.SetQRCode("data:image/png;base64,abc")

	assert.Equal(t, StatusQRGenerated, session.Status)
	assert.Equal(t, "data:image/png;base64,abc", session.QRCode)
}

func TestSession_MarkConnected(t *testing.T) {
	session := NewSession("user-1")
	session.SetQRCode("data:image/png;base64,abc")
	session.RetryCount = 2

	session.MarkConnected("5511999887766")

	assert.Equal(t, StatusConnected, session.Status)
	assert.Equal(t, "5511999887766", session.PhoneNumber)
	assert.Empty(t, session.QRCode, "connecting must clear the QR code")
	assert.Equal(t, 0, session.RetryCount, "connecting must reset the retry budget")
	require.NotNil(t, session.ConnectedAt)
	assert.True(t, session.IsConnected())
}

func TestSession_MarkConnected_KeepsPhoneWhenUnknown(t *testing.T) {
	session := NewSession("user-1")
	session.MarkConnected("5511999887766")
	session.Disconnect()

	session.MarkConnected("")

	assert.Equal(t, "5511999887766", session.PhoneNumber)
}

func TestSession_Disconnect(t *testing.T) {
	session := NewSession("user-1")
	session.MarkConnected("5511999887766")

	session.Disconnect()

	assert.Equal(t, StatusDisconnected, session.Status)
	assert.Empty(t, session.QRCode)
	require.NotNil(t, session.DisconnectedAt)
	assert.False(t, session.IsConnected())
}

func TestSession_UpdateStatus(t *testing.T) {
	session := NewSession("user-1")

	require.NoError(t, session.UpdateStatus(StatusConnecting, ""))
	assert.Equal(t, StatusConnecting, session.Status)

	require.NoError(t, session.UpdateStatus(StatusConnected, "5511999887766"))
	assert.Equal(t, StatusConnected, session.Status)
	assert.Equal(t, "5511999887766", session.PhoneNumber)

	require.NoError(t, session.UpdateStatus(StatusError, ""))
	assert.Equal(t, StatusError, session.Status)
}

func TestSession_UpdateStatus_Invalid(t *testing.T) {
	session := NewSession("user-1")

	err := session.UpdateStatus(Status("BOGUS"), "")

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, StatusDisconnected, session.Status)
}

func TestSession_UpdateStatus_QRGeneratedIgnored(t *testing.T) {
	session := NewSession("user-1")

	require.NoError(t, session.UpdateStatus(StatusQRGenerated, ""))

	// The QR transition carries a payload, so only SetQRCode performs it.
	assert.Equal(t, StatusDisconnected, session.Status)
	assert.Empty(t, session.QRCode)
}

func TestSession_CanRetry(t *testing.T) {
	session := NewSession("user-1")

	assert.True(t, session.CanRetry())

	session.IncrementRetry()
	session.IncrementRetry()
	assert.True(t, session.CanRetry())

	session.IncrementRetry()
	assert.False(t, session.CanRetry())
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusConnected.IsValid())
	assert.True(t, StatusQRGenerated.IsValid())
	assert.False(t, Status("").IsValid())
	assert.False(t, Status("connected").IsValid())
}
