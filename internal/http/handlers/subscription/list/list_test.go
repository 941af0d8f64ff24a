package list

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, userID int64) ([]*models.Subscription, error) {
	args := m.Called(ctx, userID)
	subs, _ := args.Get(0).([]*models.Subscription)
	return subs, args.Error(1)
}

func TestListHandler(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		setupMock  func(m *MockService)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "two subscriptions",
			userID: "8",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, int64(8)).Return([]*models.Subscription{
					{ID: 1, UserID: 8, Status: models.SubscriptionActive},
					{ID: 2, UserID: 8, Status: models.SubscriptionExpired},
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `"list_count":2`,
		},
		{
			name:   "empty",
			userID: "9",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, int64(9)).
					Return(nil, apperr.New(apperr.NotFound, "op", "No subscriptions found")).Once()
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "No subscriptions found",
		},
		{
			name:       "bad id",
			userID:     "-1",
			setupMock:  func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid user id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

			req := httptest.NewRequest(http.MethodGet, "/api/subscriptions/"+tt.userID, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("user_id", tt.userID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
