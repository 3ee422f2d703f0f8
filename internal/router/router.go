package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"wabook/internal/handlers"
	"wabook/internal/middleware"
)

// Router holds all the route handlers
type Router struct {
	sessionHandler *handlers.SessionHandler
	messageHandler *handlers.MessageHandler
	healthHandler  *handlers.HealthHandler
	enableCORS     bool
}

// NewRouter creates a new router instance
func NewRouter(
	sessionHandler *handlers.SessionHandler,
	messageHandler *handlers.MessageHandler,
	healthHandler *handlers.HealthHandler,
	enableCORS bool,
) *Router {
	return &Router{
		sessionHandler: sessionHandler,
		messageHandler: messageHandler,
		healthHandler:  healthHandler,
		enableCORS:     enableCORS,
	}
}

// SetupRoutes configures all the HTTP routes
func (rt *Router) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(middleware.LoggingMiddleware)

	if rt.enableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", rt.healthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", rt.sessionHandler.CreateSession)
			r.Get("/list", rt.sessionHandler.ListSessions)
			r.Delete("/{userID}", rt.sessionHandler.DisconnectSession)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Post("/send", rt.messageHandler.SendMessage)
		})
	})

	return r
}
