// Package whatsapp owns the live WhatsApp transport: one session adapter per
// user wrapping a whatsmeow client, the registry that routes calls to them,
// and the per-user auth material stores.
package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	"github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waEvents "go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"wabook/internal/domain"
	"wabook/internal/events"
)

// closeReason buckets a transport close for the reconnect policy.
type closeReason int

const (
	closeUnknown closeReason = iota
	closeBadSession
	closeRestartRequired
	closeLoggedOut
)

// unclassifiedCloseLimit is the number of unclassified closes tolerated
// before the session is marked errored instead of silently degrading.
const unclassifiedCloseLimit = 3

// SessionAdapter owns the WhatsApp transport for exactly one user. Low-level
// transport callbacks are translated into typed events on the bus; close
// reasons drive the auth material and reconnect policy.
type SessionAdapter struct {
	userID     string
	bus        *events.Bus
	authStore  *AuthStoreManager
	logger     waLog.Logger
	debugQR    bool
	maxRetries int

	mu           sync.Mutex
	client       *whatsmeow.Client
	container    *sqlstore.Container
	retryCount   int
	unclassified int
}

// NewSessionAdapter creates an adapter for one user's session.
func NewSessionAdapter(session *domain.Session, bus *events.Bus, authStore *AuthStoreManager, logger waLog.Logger, debugQR bool) *SessionAdapter {
	maxRetries := session.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &SessionAdapter{
		userID:     session.UserID,
		bus:        bus,
		authStore:  authStore,
		logger:     logger,
		debugQR:    debugQR,
		maxRetries: maxRetries,
	}
}

// Initialize loads or creates the user's auth material, opens the transport
// and registers the event callbacks. A previous transport, if any, is torn
// down first so restart-required closes can reinitialize in place.
func (a *SessionAdapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.teardownLocked()

	device, container, err := a.authStore.OpenDevice(ctx, a.userID)
	if err != nil {
		return domain.NewTransportInitError(a.userID, err)
	}

	client := whatsmeow.NewClient(device, a.logger)
	client.EnableAutoReconnect = false
	client.AddEventHandler(a.handleEvent)

	a.client = client
	a.container = container

	a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
		UserID: a.userID,
		Status: domain.StatusConnecting,
	})

	if device.ID == nil {
		// Unregistered device: drive the QR pairing flow. The channel must
		// be requested before connecting.
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			a.teardownLocked()
			return domain.NewTransportInitError(a.userID, err)
		}
		if err := client.Connect(); err != nil {
			a.teardownLocked()
			return domain.NewTransportInitError(a.userID, err)
		}
		go a.consumeQRChannel(qrChan)
	} else {
		if err := client.Connect(); err != nil {
			a.teardownLocked()
			return domain.NewTransportInitError(a.userID, err)
		}
	}

	log.Info().Str("user_id", a.userID).Msg("WhatsApp transport initialized")
	return nil
}

// teardownLocked disconnects the current client and closes the auth store
// handle. Caller holds a.mu.
func (a *SessionAdapter) teardownLocked() {
	if a.client != nil {
		a.client.Disconnect()
		a.client = nil
	}
	if a.container != nil {
		if err := a.container.Close(); err != nil {
			log.Warn().Err(err).Str("user_id", a.userID).Msg("Failed to close auth store")
		}
		a.container = nil
	}
}

// consumeQRChannel turns QR pairing events into bus events.
func (a *SessionAdapter) consumeQRChannel(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case "code":
			qrImage, err := a.renderQRCode(item.Code)
			if err != nil {
				log.Error().Err(err).Str("user_id", a.userID).Msg("Failed to render QR code")
				continue
			}
			a.bus.PublishQR(domain.QRGeneratedEvent{
				UserID:      a.userID,
				QRImageData: qrImage,
			})

		case "success":
			log.Info().Str("user_id", a.userID).Msg("QR pairing successful")
			return

		case "timeout":
			log.Warn().Str("user_id", a.userID).Msg("QR pairing timed out")
			a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
				UserID: a.userID,
				Status: domain.StatusDisconnected,
			})
			return

		default:
			log.Debug().
				Str("user_id", a.userID).
				Str("event", item.Event).
				Msg("QR channel event")
		}
	}
}

// renderQRCode encodes the pairing code as a base64 PNG data URL.
func (a *SessionAdapter) renderQRCode(code string) (string, error) {
	if a.debugQR {
		qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)
	}

	image, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(image), nil
}

// handleEvent translates whatsmeow callbacks into domain events.
func (a *SessionAdapter) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *waEvents.Connected:
		a.handleConnected()

	case *waEvents.PairSuccess:
		log.Info().
			Str("user_id", a.userID).
			Str("jid", v.ID.String()).
			Msg("WhatsApp paired")

	case *waEvents.Message:
		a.handleInboundMessage(v)

	case *waEvents.Disconnected:
		a.handleClose(closeRestartRequired, "disconnected")

	case *waEvents.StreamReplaced:
		a.handleClose(closeRestartRequired, "stream replaced")

	case *waEvents.LoggedOut:
		a.handleClose(closeLoggedOut, fmt.Sprintf("logged out (reason %d)", int(v.Reason)))

	case *waEvents.ClientOutdated:
		a.handleClose(closeBadSession, "client outdated")

	case *waEvents.ConnectFailure:
		if v.Reason == waEvents.ConnectFailureLoggedOut {
			a.handleClose(closeBadSession, "connect failure 401")
		} else {
			a.handleClose(closeUnknown, fmt.Sprintf("connect failure %d", int(v.Reason)))
		}
	}
}

func (a *SessionAdapter) handleConnected() {
	a.mu.Lock()
	a.retryCount = 0
	a.unclassified = 0
	var phone string
	if a.client != nil && a.client.Store.ID != nil {
		phone = a.client.Store.ID.User
	}
	a.mu.Unlock()

	log.Info().Str("user_id", a.userID).Str("phone", phone).Msg("WhatsApp connected")

	a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
		UserID:      a.userID,
		Status:      domain.StatusConnected,
		PhoneNumber: phone,
	})
}

// handleClose applies the close-reason policy: bad session wipes auth and
// requests cleanup, restart-required reinitializes in place within the retry
// budget, logged out keeps auth so the user can scan a new QR code, and
// anything else escalates to ERROR only after repeating.
func (a *SessionAdapter) handleClose(reason closeReason, detail string) {
	log.Warn().
		Str("user_id", a.userID).
		Str("detail", detail).
		Msg("WhatsApp connection closed")

	switch reason {
	case closeBadSession:
		a.handleBadSession(detail)

	case closeRestartRequired:
		a.mu.Lock()
		a.retryCount++
		exhausted := a.retryCount > a.maxRetries
		a.mu.Unlock()

		if exhausted {
			log.Error().Str("user_id", a.userID).Msg("Reconnect budget exhausted")
			a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
				UserID: a.userID,
				Status: domain.StatusError,
			})
			return
		}

		go func() {
			if err := a.Initialize(context.Background()); err != nil {
				log.Error().Err(err).Str("user_id", a.userID).Msg("Failed to reinitialize transport")
				a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
					UserID: a.userID,
					Status: domain.StatusError,
				})
			}
		}()

	case closeLoggedOut:
		a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
			UserID: a.userID,
			Status: domain.StatusDisconnected,
		})

	default:
		a.mu.Lock()
		a.unclassified++
		escalate := a.unclassified >= unclassifiedCloseLimit
		a.mu.Unlock()

		if escalate {
			log.Error().
				Str("user_id", a.userID).
				Int("closes", unclassifiedCloseLimit).
				Msg("Repeated unclassified closes, marking session errored")
			a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
				UserID: a.userID,
				Status: domain.StatusError,
			})
		}
	}
}

// handleBadSession wipes the corrupted auth material and asks the registry
// to tear this adapter down.
func (a *SessionAdapter) handleBadSession(detail string) {
	log.Error().
		Str("user_id", a.userID).
		Str("detail", detail).
		Msg("Bad session detected, wiping auth material")

	if err := a.DeleteSessionFiles(); err != nil {
		log.Error().Err(err).Str("user_id", a.userID).Msg("Failed to delete auth material")
	}

	a.bus.PublishCleanup(domain.SessionCleanupRequestedEvent{
		UserID: a.userID,
		Reason: "bad_session",
	})
	a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
		UserID: a.userID,
		Status: domain.StatusDisconnected,
	})
}

// handleInboundMessage publishes inbound chat messages, skipping self-sent
// and empty ones and extracting button-reply confirmation data.
func (a *SessionAdapter) handleInboundMessage(evt *waEvents.Message) {
	if evt.Info.IsFromMe || evt.Message == nil {
		return
	}

	text := evt.Message.GetConversation()
	if text == "" {
		text = evt.Message.GetExtendedTextMessage().GetText()
	}

	var confirm domain.ConfirmPayload
	if btn := evt.Message.GetButtonsResponseMessage(); btn != nil {
		confirm.AppointmentID = btn.GetSelectedButtonID()
		confirm.ButtonLabel = btn.GetSelectedDisplayText()
		if text == "" {
			text = btn.GetSelectedDisplayText()
		}
	}

	if text == "" {
		return
	}

	a.bus.PublishMessage(domain.MessageReceivedEvent{
		UserID:    a.userID,
		From:      evt.Info.Chat.String(),
		Text:      text,
		Timestamp: evt.Info.Timestamp,
		Confirm:   confirm,
	})
}

// SendMessage ships an outbound message addressed by the normalized phone
// number. Fails with NotConnectedError when no live transport exists.
func (a *SessionAdapter) SendMessage(ctx context.Context, phone domain.PhoneNumber, content domain.MessageContent) error {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return domain.NewNotConnectedError(a.userID)
	}

	recipient, err := recipientJID(phone)
	if err != nil {
		return err
	}
	msg := buildOutboundMessage(content)

	if _, err := client.SendMessage(ctx, recipient, msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	log.Info().
		Str("user_id", a.userID).
		Str("to", recipient.String()).
		Msg("Message sent")
	return nil
}

// recipientJID derives the wire address for an outbound send from the
// normalized phone number.
func recipientJID(phone domain.PhoneNumber) (types.JID, error) {
	jid, err := types.ParseJID(phone.JID())
	if err != nil {
		return types.EmptyJID, fmt.Errorf("invalid recipient address: %w", err)
	}
	return jid, nil
}

// buildOutboundMessage maps the content payload onto the wire message. Texts
// with buttons become an interactive buttons message whose button ids carry
// the appointment id back in the reply.
func buildOutboundMessage(content domain.MessageContent) *waE2E.Message {
	if len(content.Buttons) == 0 {
		return &waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{
				Text: proto.String(content.Text),
			},
		}
	}

	buttons := make([]*waE2E.ButtonsMessage_Button, 0, len(content.Buttons))
	for _, b := range content.Buttons {
		buttons = append(buttons, &waE2E.ButtonsMessage_Button{
			ButtonID: proto.String(b.ID),
			ButtonText: &waE2E.ButtonsMessage_Button_ButtonText{
				DisplayText: proto.String(b.Label),
			},
			Type: waE2E.ButtonsMessage_Button_RESPONSE.Enum(),
		})
	}

	return &waE2E.Message{
		ButtonsMessage: &waE2E.ButtonsMessage{
			ContentText: proto.String(content.Text),
			HeaderType:  waE2E.ButtonsMessage_EMPTY.Enum(),
			Buttons:     buttons,
		},
	}
}

// Logout gracefully terminates the transport, wipes the auth material and
// publishes the disconnect.
func (a *SessionAdapter) Logout(ctx context.Context) error {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()

	if client == nil {
		log.Warn().Str("user_id", a.userID).Msg("Logout with no active transport")
	} else if err := client.Logout(ctx); err != nil {
		log.Warn().Err(err).Str("user_id", a.userID).Msg("Remote logout failed, continuing cleanup")
	}

	a.mu.Lock()
	a.teardownLocked()
	a.mu.Unlock()

	if err := a.DeleteSessionFiles(); err != nil {
		return err
	}

	a.bus.PublishUpdate(domain.ConnectionUpdateEvent{
		UserID: a.userID,
		Status: domain.StatusDisconnected,
	})

	log.Info().Str("user_id", a.userID).Msg("Logged out")
	return nil
}

// Disconnect tears the transport down best-effort without touching the auth
// material. Used for transient cleanup, distinct from Logout.
func (a *SessionAdapter) Disconnect() {
	a.mu.Lock()
	a.teardownLocked()
	a.mu.Unlock()
}

// DeleteSessionFiles removes the persisted auth material unconditionally.
func (a *SessionAdapter) DeleteSessionFiles() error {
	return a.authStore.DeleteAuthMaterial(a.userID)
}
