package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"wabook/internal/domain"
	"wabook/internal/services"
)

func TestSendMessage(t *testing.T) {
	session := domain.NewSession("user-1")
	session.MarkConnected("5511999887766")
	repo := newStubRepository(session)

	handler := NewMessageHandler(services.NewSendMessageUseCase(repo, &stubProvider{}))

	body := `{"user_id":"user-1","phone_number":"5511988776655","content":{"text":"hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SendMessage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestSendMessage_SessionNotConnected(t *testing.T) {
	repo := newStubRepository(domain.NewSession("user-1"))
	handler := NewMessageHandler(services.NewSendMessageUseCase(repo, &stubProvider{}))

	body := `{"user_id":"user-1","phone_number":"5511988776655","content":{"text":"hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SendMessage(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendMessage_UnknownUser(t *testing.T) {
	repo := newStubRepository()
	handler := NewMessageHandler(services.NewSendMessageUseCase(repo, &stubProvider{}))

	body := `{"user_id":"user-1","phone_number":"5511988776655","content":{"text":"hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.SendMessage(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendMessage_MissingFields(t *testing.T) {
	handler := NewMessageHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/send", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.SendMessage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
