package whatsapp

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"wabook/internal/domain"
	"wabook/internal/events"
)

// Adapter is the per-user transport contract the registry routes calls to.
type Adapter interface {
	Initialize(ctx context.Context) error
	SendMessage(ctx context.Context, phone domain.PhoneNumber, content domain.MessageContent) error
	Logout(ctx context.Context) error
	Disconnect()
	DeleteSessionFiles() error
}

// AdapterFactory builds an adapter for a session. Swapped for a fake in
// tests.
type AdapterFactory func(session *domain.Session) Adapter

// Provider is the adapter registry: it maps user ids to live adapters,
// creates and destroys them, and routes outbound send and logout calls. It
// implements domain.NotificationProvider.
type Provider struct {
	factory AdapterFactory

	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewProvider creates a registry that builds adapters with factory and tears
// them down when a session cleanup is requested on the bus.
func NewProvider(bus *events.Bus, factory AdapterFactory) (*Provider, error) {
	p := &Provider{
		factory:  factory,
		adapters: make(map[string]Adapter),
	}

	if err := bus.SubscribeCleanup(p.handleCleanup); err != nil {
		return nil, err
	}

	return p, nil
}

// Connect ensures an initialized adapter exists for the session's user.
// Idempotent: a second call for the same user is a no-op, even while the
// first initialize is still in flight. Initialize failures propagate to the
// caller and leave no adapter registered.
func (p *Provider) Connect(ctx context.Context, session *domain.Session) error {
	userID := session.UserID

	p.mu.Lock()
	if _, exists := p.adapters[userID]; exists {
		p.mu.Unlock()
		return nil
	}
	adapter := p.factory(session)
	p.adapters[userID] = adapter
	p.mu.Unlock()

	log.Info().Str("user_id", userID).Msg("Creating WhatsApp adapter")

	// Initialize outside the lock so one user's slow transport does not
	// block the registry for everyone else.
	if err := adapter.Initialize(ctx); err != nil {
		p.mu.Lock()
		delete(p.adapters, userID)
		p.mu.Unlock()
		return err
	}

	return nil
}

// Logout terminates and unregisters the user's adapter. A missing adapter is
// a logged no-op so repeated logouts stay harmless.
func (p *Provider) Logout(ctx context.Context, userID string) error {
	p.mu.Lock()
	adapter, exists := p.adapters[userID]
	if exists {
		delete(p.adapters, userID)
	}
	p.mu.Unlock()

	if !exists {
		log.Warn().Str("user_id", userID).Msg("Logout requested but no adapter registered")
		return nil
	}

	if err := adapter.Logout(ctx); err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Msg("Adapter logged out and removed")
	return nil
}

// SendMessage routes a send to the user's adapter. Returns
// NoActiveSessionError instead of silently dropping the message when no
// adapter is registered.
func (p *Provider) SendMessage(ctx context.Context, userID string, phone domain.PhoneNumber, content domain.MessageContent) error {
	p.mu.RLock()
	adapter, exists := p.adapters[userID]
	p.mu.RUnlock()

	if !exists {
		return domain.NewNoActiveSessionError(userID)
	}

	return adapter.SendMessage(ctx, phone, content)
}

// HasAdapter reports whether a live adapter is registered for the user.
func (p *Provider) HasAdapter(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, exists := p.adapters[userID]
	return exists
}

// AdapterCount returns the number of registered adapters.
func (p *Provider) AdapterCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.adapters)
}

// handleCleanup disconnects and unregisters the named adapter after a bad
// session. Auth material was already wiped by the adapter itself.
func (p *Provider) handleCleanup(evt domain.SessionCleanupRequestedEvent) {
	log.Warn().
		Str("user_id", evt.UserID).
		Str("reason", evt.Reason).
		Msg("Cleaning up WhatsApp session")

	p.mu.Lock()
	adapter, exists := p.adapters[evt.UserID]
	if exists {
		delete(p.adapters, evt.UserID)
	}
	p.mu.Unlock()

	if exists {
		adapter.Disconnect()
		log.Info().Str("user_id", evt.UserID).Msg("Adapter removed")
	}
}

// Shutdown disconnects every registered adapter. Auth material is kept so
// sessions reconnect on the next bootstrap.
func (p *Provider) Shutdown() {
	p.mu.Lock()
	adapters := p.adapters
	p.adapters = make(map[string]Adapter)
	p.mu.Unlock()

	for userID, adapter := range adapters {
		adapter.Disconnect()
		log.Info().Str("user_id", userID).Msg("Adapter disconnected on shutdown")
	}
}
