package me

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Me(ctx context.Context, principal models.Principal) (*models.User, error) {
	args := m.Called(ctx, principal)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func TestMeHandler(t *testing.T) {
	principal := models.Principal{UserID: 4, Username: "carol", Role: models.RoleUser}

	t.Run("current user", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Me", mock.Anything, principal).
			Return(&models.User{ID: 4, Username: "carol", Role: models.RoleUser}, nil).Once()
		handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), principal))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"OK","data":{"role":"user","username":"carol"}}`, rr.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("user deleted", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Me", mock.Anything, principal).
			Return(nil, apperr.New(apperr.NotFound, "op", "User not found")).Once()
		handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), principal))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "User not found")
	})
}
