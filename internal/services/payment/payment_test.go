package payment_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/events"
	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	"github.com/magabrotheeeer/saas-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/services/payment"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) CreatePayment(ctx context.Context, p models.Payment) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *RepoMock) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *RepoMock) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *RepoMock) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) FindLatestSubscription(ctx context.Context, userID int64, planName string) (*models.Subscription, error) {
	args := m.Called(ctx, userID, planName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

type TxStub struct{}

func (TxStub) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	today    = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	notFound = fmt.Errorf("storage.Get: %w", repository.ErrNotFound)
	session  = "6f1c2a4e-3f5b-4c1d-9a7e-2b8c0d9e1f23"
)

func newService(repo *RepoMock) *payment.PaymentService {
	cfg := config.Payments{
		CheckoutBaseURL: "http://localhost:8080/checkout.html",
		RenewalDays:     30,
		PricePerDay:     10,
	}
	return payment.New(repo, TxStub{}, events.Noop{}, nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(func() time.Time { return fixedNow }).
		WithSessionGenerator(func() string { return session })
}

func TestPaymentService_CreateCheckout_InvalidAmount(t *testing.T) {
	for _, amount := range []int64{0, -1, -300} {
		t.Run(fmt.Sprint(amount), func(t *testing.T) {
			repo := new(RepoMock)
			svc := newService(repo)

			_, err := svc.CreateCheckout(context.Background(), 1, "Basic", amount, nil)
			require.Error(t, err)
			assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
			repo.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
		})
	}
}

func TestPaymentService_CreateCheckout(t *testing.T) {
	subID := int64(5)

	tests := []struct {
		name           string
		amount         int64
		subscriptionID *int64
		setupMocks     func(r *RepoMock)
		wantKind       apperr.Kind
		wantURL        string
	}{
		{
			name:   "amount one is accepted",
			amount: 1,
			setupMocks: func(r *RepoMock) {
				r.On("FindLatestSubscription", mock.Anything, int64(1), "Basic").
					Return(&models.Subscription{ID: subID, UserID: 1}, nil).Once()
				r.On("CreatePayment", mock.Anything, models.Payment{
					UserID:         1,
					SubscriptionID: &subID,
					PlanName:       "Basic",
					Amount:         1,
					Status:         models.PaymentPending,
					SessionID:      session,
				}).Return(int64(100000), nil).Once()
			},
			wantURL: "http://localhost:8080/checkout.html?payment_id=100000&session=" + session,
		},
		{
			name:           "explicit subscription id",
			amount:         300,
			subscriptionID: &subID,
			setupMocks: func(r *RepoMock) {
				r.On("GetSubscription", mock.Anything, subID).Return(&models.Subscription{ID: subID, UserID: 1}, nil).Once()
				r.On("CreatePayment", mock.Anything, mock.Anything).Return(int64(100001), nil).Once()
			},
			wantURL: "http://localhost:8080/checkout.html?payment_id=100001&session=" + session,
		},
		{
			name:   "no subscription for plan",
			amount: 300,
			setupMocks: func(r *RepoMock) {
				r.On("FindLatestSubscription", mock.Anything, int64(1), "Basic").Return(nil, notFound).Once()
			},
			wantKind: apperr.NotFound,
		},
		{
			name:           "subscription of another user",
			amount:         300,
			subscriptionID: &subID,
			setupMocks: func(r *RepoMock) {
				r.On("GetSubscription", mock.Anything, subID).Return(&models.Subscription{ID: subID, UserID: 2}, nil).Once()
			},
			wantKind: apperr.NotFound,
		},
		{
			name:   "store failure",
			amount: 300,
			setupMocks: func(r *RepoMock) {
				r.On("FindLatestSubscription", mock.Anything, int64(1), "Basic").
					Return(&models.Subscription{ID: subID, UserID: 1}, nil).Once()
				r.On("CreatePayment", mock.Anything, mock.Anything).Return(int64(0), errors.New("db error")).Once()
			},
			wantKind: apperr.Internal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			svc := newService(repo)

			got, err := svc.CreateCheckout(context.Background(), 1, "Basic", tt.amount, tt.subscriptionID)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, got.URL)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestPaymentService_CreateCheckout_PublishesEvent(t *testing.T) {
	repo := new(RepoMock)
	pub := new(PublisherMock)
	subID := int64(5)

	repo.On("FindLatestSubscription", mock.Anything, int64(1), "Basic").
		Return(&models.Subscription{ID: subID, UserID: 1}, nil).Once()
	repo.On("CreatePayment", mock.Anything, mock.Anything).Return(int64(100000), nil).Once()
	pub.On("Publish", mock.Anything, rabbitmq.RoutingCheckoutCreated, events.CheckoutCreated{
		PaymentID: 100000, UserID: 1, SubscriptionID: &subID, PlanName: "Basic", Amount: 300,
	}).Return(nil).Once()

	svc := payment.New(repo, TxStub{}, pub, nil, config.Payments{CheckoutBaseURL: "http://x/checkout"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.CreateCheckout(context.Background(), 1, "Basic", 300, nil)
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func TestPaymentService_Confirm(t *testing.T) {
	subID := int64(5)
	pendingPayment := func() *models.Payment {
		return &models.Payment{ID: 100000, UserID: 1, SubscriptionID: &subID, Amount: 300, Status: models.PaymentPending}
	}

	t.Run("unknown payment", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetPayment", mock.Anything, int64(42)).Return(nil, notFound).Once()

		_, err := newService(repo).Confirm(context.Background(), 42)
		require.Error(t, err)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
		repo.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("activates subscription and keeps future end date", func(t *testing.T) {
		repo := new(RepoMock)
		end := today.AddDate(0, 0, 30)
		repo.On("GetPayment", mock.Anything, int64(100000)).Return(pendingPayment(), nil).Once()
		repo.On("UpdatePaymentStatus", mock.Anything, int64(100000), models.PaymentConfirmed).Return(nil).Once()
		repo.On("GetSubscription", mock.Anything, subID).
			Return(&models.Subscription{ID: subID, EndDate: end, Status: models.SubscriptionPending}, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, models.Subscription{
			ID: subID, EndDate: end, Status: models.SubscriptionActive,
		}).Return(nil).Once()

		sub, err := newService(repo).Confirm(context.Background(), 100000)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionActive, sub.Status)
		assert.Equal(t, end, sub.EndDate)
		repo.AssertExpectations(t)
	})

	t.Run("past end date restarts renewal period", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetPayment", mock.Anything, int64(100000)).Return(pendingPayment(), nil).Once()
		repo.On("UpdatePaymentStatus", mock.Anything, int64(100000), models.PaymentConfirmed).Return(nil).Once()
		repo.On("GetSubscription", mock.Anything, subID).
			Return(&models.Subscription{ID: subID, EndDate: today.AddDate(0, 0, -2), Status: models.SubscriptionExpired}, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Once()

		sub, err := newService(repo).Confirm(context.Background(), 100000)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionActive, sub.Status)
		assert.Equal(t, today.AddDate(0, 0, 30), sub.EndDate)
	})

	t.Run("second confirmation is harmless", func(t *testing.T) {
		repo := new(RepoMock)
		confirmed := pendingPayment()
		confirmed.Status = models.PaymentConfirmed
		end := today.AddDate(0, 0, 10)

		repo.On("GetPayment", mock.Anything, int64(100000)).Return(confirmed, nil).Twice()
		repo.On("UpdatePaymentStatus", mock.Anything, int64(100000), models.PaymentConfirmed).Return(nil).Twice()
		repo.On("GetSubscription", mock.Anything, subID).
			Return(&models.Subscription{ID: subID, EndDate: end, Status: models.SubscriptionActive}, nil).Twice()
		repo.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Twice()

		svc := newService(repo)
		_, err := svc.Confirm(context.Background(), 100000)
		require.NoError(t, err)
		sub, err := svc.Confirm(context.Background(), 100000)
		require.NoError(t, err)
		assert.Equal(t, end, sub.EndDate)
		repo.AssertExpectations(t)
	})

	t.Run("repeat confirmation counts one transition", func(t *testing.T) {
		repo := new(RepoMock)
		end := today.AddDate(0, 0, 10)
		repo.On("GetPayment", mock.Anything, int64(100000)).Return(pendingPayment(), nil).Twice()
		repo.On("UpdatePaymentStatus", mock.Anything, int64(100000), models.PaymentConfirmed).Return(nil).Twice()
		repo.On("GetSubscription", mock.Anything, subID).
			Return(&models.Subscription{ID: subID, EndDate: end, Status: models.SubscriptionPending}, nil).Once()
		repo.On("GetSubscription", mock.Anything, subID).
			Return(&models.Subscription{ID: subID, EndDate: end, Status: models.SubscriptionActive}, nil).Once()
		repo.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Twice()

		reg := prometheus.NewRegistry()
		cfg := config.Payments{CheckoutBaseURL: "http://localhost:8080/checkout.html", RenewalDays: 30, PricePerDay: 10}
		svc := payment.New(repo, TxStub{}, events.Noop{}, metrics.New(reg), cfg, slog.New(slog.NewTextHandler(io.Discard, nil))).
			WithClock(func() time.Time { return fixedNow })

		for range 2 {
			_, err := svc.Confirm(context.Background(), 100000)
			require.NoError(t, err)
		}

		expected := `
# HELP billing_subscription_transitions_total Subscription status transitions by target status.
# TYPE billing_subscription_transitions_total counter
billing_subscription_transitions_total{to="active"} 1
`
		assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "billing_subscription_transitions_total"))
		repo.AssertExpectations(t)
	})

	t.Run("payment without subscription", func(t *testing.T) {
		repo := new(RepoMock)
		p := pendingPayment()
		p.SubscriptionID = nil
		repo.On("GetPayment", mock.Anything, int64(100000)).Return(p, nil).Once()
		repo.On("UpdatePaymentStatus", mock.Anything, int64(100000), models.PaymentConfirmed).Return(nil).Once()

		sub, err := newService(repo).Confirm(context.Background(), 100000)
		require.NoError(t, err)
		assert.Nil(t, sub)
		repo.AssertNotCalled(t, "GetSubscription", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_List(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListPayments", mock.Anything).Return([]*models.Payment{{ID: 100000}}, nil).Once()

	got, err := newService(repo).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	repo.On("ListPayments", mock.Anything).Return(nil, errors.New("db error")).Once()
	_, err = newService(repo).List(context.Background())
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))
}
