package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-billing/internal/lib/rabbitmq"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNoop(t *testing.T) {
	require.NoError(t, Noop{}.Publish(context.Background(), rabbitmq.RoutingPaymentConfirmed, PaymentConfirmed{}))
}

func TestEmit(t *testing.T) {
	ctx := context.Background()
	event := SubscriptionCancelled{SubscriptionID: 7, UserID: 1, PlanName: "Basic", CancelledBy: "admin"}

	t.Run("publishes", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", ctx, rabbitmq.RoutingSubscriptionCancelled, event).Return(nil).Once()

		Emit(ctx, newNoopLogger(), pub, rabbitmq.RoutingSubscriptionCancelled, event)
		pub.AssertExpectations(t)
	})

	t.Run("error is swallowed", func(t *testing.T) {
		pub := new(MockPublisher)
		pub.On("Publish", ctx, rabbitmq.RoutingSubscriptionCancelled, event).Return(errors.New("broker down")).Once()

		assert.NotPanics(t, func() {
			Emit(ctx, newNoopLogger(), pub, rabbitmq.RoutingSubscriptionCancelled, event)
		})
		pub.AssertExpectations(t)
	})

	t.Run("nil publisher", func(t *testing.T) {
		assert.NotPanics(t, func() {
			Emit(ctx, newNoopLogger(), nil, rabbitmq.RoutingSubscriptionCancelled, event)
		})
	})
}
