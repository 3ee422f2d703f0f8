package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabook/internal/domain"
	"wabook/internal/events"
	"wabook/internal/services"
)

// stubRepository serves canned sessions for handler tests.
type stubRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newStubRepository(sessions ...*domain.Session) *stubRepository {
	r := &stubRepository{sessions: make(map[string]*domain.Session)}
	for _, s := range sessions {
		r.sessions[s.UserID] = s
	}
	return r
}

func (r *stubRepository) Create(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.UserID] = session
	return nil
}

func (r *stubRepository) GetByID(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return nil, domain.NewNotFoundError("Session", id.String())
}

func (r *stubRepository) GetByUserID(ctx context.Context, userID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[userID]; ok {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound(userID)
}

func (r *stubRepository) GetAll(ctx context.Context) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (r *stubRepository) GetConnectedSessions(ctx context.Context) ([]*domain.Session, error) {
	return nil, nil
}

func (r *stubRepository) Update(ctx context.Context, session *domain.Session) error { return nil }
func (r *stubRepository) Delete(ctx context.Context, userID string) error           { return nil }

// stubProvider implements domain.NotificationProvider without a transport.
type stubProvider struct {
	onConnect func(userID string)
	sendErr   error
}

func (p *stubProvider) Connect(ctx context.Context, session *domain.Session) error {
	if p.onConnect != nil {
		go p.onConnect(session.UserID)
	}
	return nil
}

func (p *stubProvider) Logout(ctx context.Context, userID string) error { return nil }

func (p *stubProvider) SendMessage(ctx context.Context, userID string, phone domain.PhoneNumber, content domain.MessageContent) error {
	return p.sendErr
}

func TestCreateSession_ReturnsQRCode(t *testing.T) {
	bus := events.NewBus()
	waiter, err := events.NewWaiter(bus)
	require.NoError(t, err)

	provider := &stubProvider{
		onConnect: func(userID string) {
			deadline := time.Now().Add(time.Second)
			for waiter.PendingWaits() == 0 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			bus.PublishQR(domain.QRGeneratedEvent{UserID: userID, QRImageData: "data:image/png;base64,abc"})
		},
	}

	repo := newStubRepository()
	handler := NewSessionHandler(
		services.NewCreateSessionUseCase(repo, provider, waiter, time.Second),
		services.NewDisconnectSessionUseCase(repo, provider),
		services.NewListSessionsUseCase(repo),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"user_id":"user-1"}`))
	rec := httptest.NewRecorder()

	handler.CreateSession(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "data:image/png;base64,abc")
}

func TestCreateSession_InvalidBody(t *testing.T) {
	handler := NewSessionHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()

	handler.CreateSession(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSession_MissingUserID(t *testing.T) {
	handler := NewSessionHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.CreateSession(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSession_WaitTimeoutMapsToGatewayTimeout(t *testing.T) {
	bus := events.NewBus()
	waiter, err := events.NewWaiter(bus)
	require.NoError(t, err)

	repo := newStubRepository()
	provider := &stubProvider{}
	handler := NewSessionHandler(
		services.NewCreateSessionUseCase(repo, provider, waiter, 20*time.Millisecond),
		services.NewDisconnectSessionUseCase(repo, provider),
		services.NewListSessionsUseCase(repo),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"user_id":"user-1"}`))
	rec := httptest.NewRecorder()

	handler.CreateSession(rec, req)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "wait timeout", err: events.ErrWaitTimeout, code: http.StatusGatewayTimeout},
		{name: "wait in flight", err: events.ErrWaitInFlight, code: http.StatusConflict},
		{name: "validation", err: domain.NewValidationError("bad input"), code: http.StatusBadRequest},
		{name: "not found", err: domain.ErrSessionNotFound("user-1"), code: http.StatusNotFound},
		{name: "business", err: domain.NewBusinessError("nope"), code: http.StatusConflict},
		{name: "not connected", err: domain.NewNotConnectedError("user-1"), code: http.StatusConflict},
		{name: "no active session", err: domain.NewNoActiveSessionError("user-1"), code: http.StatusConflict},
		{name: "unknown", err: assert.AnError, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
