package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wabook/internal/app/config"
	"wabook/internal/domain"
	"wabook/internal/events"
	"wabook/internal/infra/whatsapp"
	"wabook/internal/services"
	"wabook/internal/storage"
	"wabook/internal/storage/repository"
)

// Container holds all application dependencies
type Container struct {
	config *config.Config
	db     *storage.Database

	// Event bridging
	bus    *events.Bus
	waiter *events.Waiter

	// WhatsApp
	authStore *whatsapp.AuthStoreManager
	provider  *whatsapp.Provider

	// Repositories
	sessionRepo domain.Repository

	// Use cases
	createSessionUC       *services.CreateSessionUseCase
	disconnectSessionUC   *services.DisconnectSessionUseCase
	sendMessageUC         *services.SendMessageUseCase
	handleSessionStatusUC *services.HandleSessionStatusUseCase
	bootstrapSessionsUC   *services.BootstrapSessionsUseCase
	listSessionsUC        *services.ListSessionsUseCase
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{
		config: cfg,
	}

	if err := container.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := container.initializeEventBridge(); err != nil {
		return nil, fmt.Errorf("failed to initialize event bridge: %w", err)
	}

	container.initializeRepositories()

	if err := container.initializeWhatsApp(); err != nil {
		return nil, fmt.Errorf("failed to initialize WhatsApp: %w", err)
	}

	container.initializeUseCases()

	if err := container.subscribeEventHandlers(); err != nil {
		return nil, fmt.Errorf("failed to subscribe event handlers: %w", err)
	}

	log.Info().Msg("Application container initialized successfully")
	return container, nil
}

// initializeDatabase sets up the database connection and runs migrations
func (c *Container) initializeDatabase() error {
	db, err := storage.New(c.config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.db = db
	return nil
}

// initializeEventBridge constructs the process-wide event bus and the waiter
// bridging it into synchronous calls. Both are owned here and injected
// everywhere; there is no global registration map.
func (c *Container) initializeEventBridge() error {
	c.bus = events.NewBus()

	waiter, err := events.NewWaiter(c.bus)
	if err != nil {
		return err
	}
	c.waiter = waiter

	return nil
}

// initializeRepositories sets up all repositories
func (c *Container) initializeRepositories() {
	c.sessionRepo = repository.NewSessionRepository(c.db.DB)
}

// initializeWhatsApp sets up the auth store and the adapter registry
func (c *Container) initializeWhatsApp() error {
	waLogger := waLog.Stdout("WhatsApp", c.config.WhatsApp.LogLevel, true)
	c.authStore = whatsapp.NewAuthStoreManager(c.config.WhatsApp.SessionsDir, waLogger)

	factory := func(session *domain.Session) whatsapp.Adapter {
		return whatsapp.NewSessionAdapter(session, c.bus, c.authStore, waLogger, c.config.WhatsApp.Debug)
	}

	provider, err := whatsapp.NewProvider(c.bus, factory)
	if err != nil {
		return err
	}
	c.provider = provider

	return nil
}

// initializeUseCases sets up all use cases
func (c *Container) initializeUseCases() {
	c.createSessionUC = services.NewCreateSessionUseCase(c.sessionRepo, c.provider, c.waiter, c.config.WhatsApp.WaitTimeout)
	c.disconnectSessionUC = services.NewDisconnectSessionUseCase(c.sessionRepo, c.provider)
	c.sendMessageUC = services.NewSendMessageUseCase(c.sessionRepo, c.provider)
	c.handleSessionStatusUC = services.NewHandleSessionStatusUseCase(c.sessionRepo)
	c.bootstrapSessionsUC = services.NewBootstrapSessionsUseCase(c.sessionRepo, c.provider)
	c.listSessionsUC = services.NewListSessionsUseCase(c.sessionRepo)
}

// subscribeEventHandlers wires bus events into the store-syncing use case
// and downstream consumers.
func (c *Container) subscribeEventHandlers() error {
	err := c.bus.SubscribeUpdate(func(evt domain.ConnectionUpdateEvent) {
		ctx := context.Background()
		if err := c.handleSessionStatusUC.Execute(ctx, evt.UserID, evt.Status, evt.PhoneNumber); err != nil {
			log.Error().Err(err).Str("user_id", evt.UserID).Msg("Failed to apply session status event")
		}
	})
	if err != nil {
		return err
	}

	err = c.bus.SubscribeQR(func(evt domain.QRGeneratedEvent) {
		ctx := context.Background()
		if err := c.handleSessionStatusUC.HandleQR(ctx, evt.UserID, evt.QRImageData); err != nil {
			log.Error().Err(err).Str("user_id", evt.UserID).Msg("Failed to store QR code")
		}
	})
	if err != nil {
		return err
	}

	// Inbound messages feed the appointment confirmation flow, which lives
	// outside this service. Log them here so the bridge is observable.
	return c.bus.SubscribeMessage(func(evt domain.MessageReceivedEvent) {
		log.Info().
			Str("user_id", evt.UserID).
			Str("from", evt.From).
			Str("appointment_id", evt.Confirm.AppointmentID).
			Msg("Inbound WhatsApp message")
	})
}

// Bootstrap reconnects previously connected sessions. Called once after the
// container is fully wired.
func (c *Container) Bootstrap(ctx context.Context) {
	if err := c.bootstrapSessionsUC.Execute(ctx); err != nil {
		log.Error().Err(err).Msg("Session bootstrap failed")
	}
}

// Close closes all resources
func (c *Container) Close() error {
	if c.provider != nil {
		c.provider.Shutdown()
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database connection")
			return err
		}
	}

	log.Info().Msg("Application container closed successfully")
	return nil
}

// Getters for dependencies

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Database() *storage.Database {
	return c.db
}

func (c *Container) Bus() *events.Bus {
	return c.bus
}

func (c *Container) SessionRepository() domain.Repository {
	return c.sessionRepo
}

func (c *Container) CreateSessionUseCase() *services.CreateSessionUseCase {
	return c.createSessionUC
}

func (c *Container) DisconnectSessionUseCase() *services.DisconnectSessionUseCase {
	return c.disconnectSessionUC
}

func (c *Container) SendMessageUseCase() *services.SendMessageUseCase {
	return c.sendMessageUC
}

func (c *Container) ListSessionsUseCase() *services.ListSessionsUseCase {
	return c.listSessionsUC
}
