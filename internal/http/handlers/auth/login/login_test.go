package login

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	authservice "github.com/magabrotheeeer/saas-billing/internal/services/auth"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, email, password string) (*authservice.Token, error) {
	args := m.Called(ctx, email, password)
	token, _ := args.Get(0).(*authservice.Token)
	return token, args.Error(1)
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			body: `{"email":"bob@example.com","password":"secret123"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "bob@example.com", "secret123").
					Return(&authservice.Token{AccessToken: "tok", TokenType: "bearer", UserID: 7}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"access_token":"tok","token_type":"bearer","user_id":7`,
		},
		{
			name:       "bad json",
			body:       `{"email":`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid request body",
		},
		{
			name:       "missing password",
			body:       `{"email":"bob@example.com"}`,
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "field Password is a required field",
		},
		{
			name: "wrong password",
			body: `{"email":"bob@example.com","password":"nope"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "bob@example.com", "nope").
					Return(nil, apperr.New(apperr.Unauthenticated, "op", "Invalid credentials")).Once()
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(tt.body))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.True(t, strings.Contains(rr.Body.String(), tt.wantBody), rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
