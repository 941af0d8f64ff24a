package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, password)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	valid := Request{Username: "alice", Email: "alice@example.com", Password: "secret123"}

	tests := []struct {
		name         string
		body         any
		setupMock    func(m *MockService)
		wantCode     int
		wantContains string
	}{
		{
			name: "success",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, "alice", "alice@example.com", "secret123").
					Return(&models.User{ID: 1, Username: "alice", Role: models.RoleUser}, nil).Once()
			},
			wantCode:     http.StatusOK,
			wantContains: `"user":{"id":1,"username":"alice","role":"user"}`,
		},
		{
			name:         "invalid json",
			body:         "not a json",
			setupMock:    func(_ *MockService) {},
			wantCode:     http.StatusBadRequest,
			wantContains: "invalid request body",
		},
		{
			name:         "invalid email",
			body:         Request{Username: "alice", Email: "nope", Password: "secret123"},
			setupMock:    func(_ *MockService) {},
			wantCode:     http.StatusUnprocessableEntity,
			wantContains: "field Email must be a valid email",
		},
		{
			name: "email taken",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, "alice", "alice@example.com", "secret123").
					Return(nil, apperr.New(apperr.Conflict, "op", "Email already registered")).Once()
			},
			wantCode:     http.StatusBadRequest,
			wantContains: "Email already registered",
		},
		{
			name: "internal error",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("db down")).Once()
			},
			wantCode:     http.StatusInternalServerError,
			wantContains: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(newNoopLogger(), svc)

			var buf bytes.Buffer
			if s, ok := tt.body.(string); ok {
				buf.WriteString(s)
			} else {
				_ = json.NewEncoder(&buf).Encode(tt.body)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id"))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantContains)
			svc.AssertExpectations(t)
		})
	}
}
