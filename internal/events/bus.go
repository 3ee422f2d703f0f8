// Package events provides the in-process typed publish/subscribe bus carrying
// WhatsApp domain events between connection adapters and application logic,
// and the waiter that bridges those events into await-with-timeout calls.
package events

import (
	evbus "github.com/asaskevich/EventBus"

	"wabook/internal/domain"
)

// Kind enumerates the event topics carried by the bus.
type Kind string

const (
	KindQR      Kind = "whatsapp.qr"
	KindUpdate  Kind = "whatsapp.update"
	KindMessage Kind = "whatsapp.message"
	KindCleanup Kind = "whatsapp.session.cleanup"
)

// Bus is a typed wrapper around an in-process pub/sub bus. Each process owns
// one instance, constructed at the composition root and injected into every
// producer and consumer. Dispatch is synchronous per topic, so events of one
// kind for one user are delivered in publish order.
type Bus struct {
	bus evbus.Bus
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{bus: evbus.New()}
}

// PublishQR publishes a QR generated event
func (b *Bus) PublishQR(evt domain.QRGeneratedEvent) {
	b.bus.Publish(string(KindQR), evt)
}

// PublishUpdate publishes a connection update event
func (b *Bus) PublishUpdate(evt domain.ConnectionUpdateEvent) {
	b.bus.Publish(string(KindUpdate), evt)
}

// PublishMessage publishes an inbound message event
func (b *Bus) PublishMessage(evt domain.MessageReceivedEvent) {
	b.bus.Publish(string(KindMessage), evt)
}

// PublishCleanup publishes a session cleanup request
func (b *Bus) PublishCleanup(evt domain.SessionCleanupRequestedEvent) {
	b.bus.Publish(string(KindCleanup), evt)
}

// SubscribeQR registers a handler for QR generated events
func (b *Bus) SubscribeQR(handler func(domain.QRGeneratedEvent)) error {
	return b.bus.Subscribe(string(KindQR), handler)
}

// SubscribeUpdate registers a handler for connection update events
func (b *Bus) SubscribeUpdate(handler func(domain.ConnectionUpdateEvent)) error {
	return b.bus.Subscribe(string(KindUpdate), handler)
}

// SubscribeMessage registers a handler for inbound message events
func (b *Bus) SubscribeMessage(handler func(domain.MessageReceivedEvent)) error {
	return b.bus.Subscribe(string(KindMessage), handler)
}

// SubscribeCleanup registers a handler for session cleanup requests
func (b *Bus) SubscribeCleanup(handler func(domain.SessionCleanupRequestedEvent)) error {
	return b.bus.Subscribe(string(KindCleanup), handler)
}
