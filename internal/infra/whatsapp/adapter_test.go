package whatsapp

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	waEvents "go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"wabook/internal/domain"
	"wabook/internal/events"
)

// busRecorder collects published events. The bus dispatches synchronously,
// so recorded slices are complete as soon as the publish returns.
type busRecorder struct {
	updates  []domain.ConnectionUpdateEvent
	qrs      []domain.QRGeneratedEvent
	messages []domain.MessageReceivedEvent
	cleanups []domain.SessionCleanupRequestedEvent
}

func recordBus(t *testing.T, bus *events.Bus) *busRecorder {
	t.Helper()
	rec := &busRecorder{}
	require.NoError(t, bus.SubscribeUpdate(func(evt domain.ConnectionUpdateEvent) {
		rec.updates = append(rec.updates, evt)
	}))
	require.NoError(t, bus.SubscribeQR(func(evt domain.QRGeneratedEvent) {
		rec.qrs = append(rec.qrs, evt)
	}))
	require.NoError(t, bus.SubscribeMessage(func(evt domain.MessageReceivedEvent) {
		rec.messages = append(rec.messages, evt)
	}))
	require.NoError(t, bus.SubscribeCleanup(func(evt domain.SessionCleanupRequestedEvent) {
		rec.cleanups = append(rec.cleanups, evt)
	}))
	return rec
}

func newTestAdapter(t *testing.T) (*SessionAdapter, *busRecorder, string) {
	t.Helper()
	root := t.TempDir()
	bus := events.NewBus()
	rec := recordBus(t, bus)
	authStore := NewAuthStoreManager(root, waLog.Noop)
	adapter := NewSessionAdapter(domain.NewSession("user-1"), bus, authStore, waLog.Noop, false)
	return adapter, rec, root
}

func TestBuildOutboundMessage_TextOnly(t *testing.T) {
	msg := buildOutboundMessage(domain.MessageContent{Text: "See you tomorrow at 10:00"})

	require.NotNil(t, msg.ExtendedTextMessage)
	assert.Equal(t, "See you tomorrow at 10:00", msg.ExtendedTextMessage.GetText())
	assert.Nil(t, msg.ButtonsMessage)
}

func TestBuildOutboundMessage_WithButtons(t *testing.T) {
	msg := buildOutboundMessage(domain.MessageContent{
		Text: "Confirm your appointment?",
		Buttons: []domain.MessageButton{
			{ID: "confirm_appt-42", Label: "Confirm"},
			{ID: "cancel_appt-42", Label: "Cancel"},
		},
	})

	require.NotNil(t, msg.ButtonsMessage)
	assert.Equal(t, "Confirm your appointment?", msg.ButtonsMessage.GetContentText())
	require.Len(t, msg.ButtonsMessage.GetButtons(), 2)
	assert.Equal(t, "confirm_appt-42", msg.ButtonsMessage.GetButtons()[0].GetButtonID())
	assert.Equal(t, "Confirm", msg.ButtonsMessage.GetButtons()[0].GetButtonText().GetDisplayText())
}

func TestRenderQRCode(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)

	dataURL, err := adapter.renderQRCode("pairing-code")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestHandleClose_BadSessionWipesAuthAndRequestsCleanup(t *testing.T) {
	adapter, rec, root := newTestAdapter(t)

	authDir := filepath.Join(root, "user-1")
	require.NoError(t, os.MkdirAll(authDir, 0o700))

	adapter.handleClose(closeBadSession, "client outdated")

	assert.NoDirExists(t, authDir, "bad session must wipe the auth material")
	require.Len(t, rec.cleanups, 1)
	assert.Equal(t, "user-1", rec.cleanups[0].UserID)
	require.Len(t, rec.updates, 1)
	assert.Equal(t, domain.StatusDisconnected, rec.updates[0].Status)
}

func TestHandleClose_LoggedOutKeepsAuthMaterial(t *testing.T) {
	adapter, rec, root := newTestAdapter(t)

	authDir := filepath.Join(root, "user-1")
	require.NoError(t, os.MkdirAll(authDir, 0o700))

	adapter.handleClose(closeLoggedOut, "logged out (reason 0)")

	assert.DirExists(t, authDir, "logged out keeps auth so the user can re-pair")
	assert.Empty(t, rec.cleanups)
	require.Len(t, rec.updates, 1)
	assert.Equal(t, domain.StatusDisconnected, rec.updates[0].Status)
}

func TestHandleClose_UnclassifiedEscalatesAfterRepeats(t *testing.T) {
	adapter, rec, _ := newTestAdapter(t)

	adapter.handleClose(closeUnknown, "connect failure 500")
	adapter.handleClose(closeUnknown, "connect failure 500")
	assert.Empty(t, rec.updates, "below the limit the session state is untouched")

	adapter.handleClose(closeUnknown, "connect failure 500")
	require.Len(t, rec.updates, 1)
	assert.Equal(t, domain.StatusError, rec.updates[0].Status)
}

func TestHandleInboundMessage(t *testing.T) {
	adapter, rec, _ := newTestAdapter(t)

	chat := types.NewJID("5511988776655", types.DefaultUserServer)
	adapter.handleInboundMessage(&waEvents.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat},
			Timestamp:     time.Now(),
		},
		Message: &waE2E.Message{Conversation: proto.String("hello")},
	})

	require.Len(t, rec.messages, 1)
	assert.Equal(t, "user-1", rec.messages[0].UserID)
	assert.Equal(t, chat.String(), rec.messages[0].From)
	assert.Equal(t, "hello", rec.messages[0].Text)
}

func TestHandleInboundMessage_SkipsOwnAndEmpty(t *testing.T) {
	adapter, rec, _ := newTestAdapter(t)

	chat := types.NewJID("5511988776655", types.DefaultUserServer)
	adapter.handleInboundMessage(&waEvents.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat, IsFromMe: true},
		},
		Message: &waE2E.Message{Conversation: proto.String("own message")},
	})
	adapter.handleInboundMessage(&waEvents.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat},
		},
		Message: &waE2E.Message{},
	})

	assert.Empty(t, rec.messages)
}

func TestHandleInboundMessage_ButtonReplyCarriesConfirmPayload(t *testing.T) {
	adapter, rec, _ := newTestAdapter(t)

	chat := types.NewJID("5511988776655", types.DefaultUserServer)
	adapter.handleInboundMessage(&waEvents.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat},
			Timestamp:     time.Now(),
		},
		Message: &waE2E.Message{
			ButtonsResponseMessage: &waE2E.ButtonsResponseMessage{
				SelectedButtonID: proto.String("confirm_appt-42"),
				Response: &waE2E.ButtonsResponseMessage_SelectedDisplayText{
					SelectedDisplayText: "Confirm",
				},
			},
		},
	})

	require.Len(t, rec.messages, 1)
	assert.Equal(t, "confirm_appt-42", rec.messages[0].Confirm.AppointmentID)
	assert.Equal(t, "Confirm", rec.messages[0].Confirm.ButtonLabel)
	assert.Equal(t, "Confirm", rec.messages[0].Text)
}

func TestRecipientJID(t *testing.T) {
	phone, err := domain.NewPhoneNumber("+55 (11) 98877-6655")
	require.NoError(t, err)

	jid, err := recipientJID(phone)
	require.NoError(t, err)

	assert.Equal(t, "5511988776655", jid.User)
	assert.Equal(t, types.DefaultUserServer, jid.Server)
}

func TestSendMessage_NoTransport(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)

	phone, err := domain.NewPhoneNumber("5511988776655")
	require.NoError(t, err)

	err = adapter.SendMessage(context.Background(), phone, domain.MessageContent{Text: "hi"})

	var notConnected *domain.NotConnectedError
	assert.ErrorAs(t, err, &notConnected)
}
