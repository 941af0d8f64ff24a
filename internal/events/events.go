// Package events публикует доменные события биллинга.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/saas-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
)

// CheckoutCreated публикуется после создания платежа.
type CheckoutCreated struct {
	PaymentID      int64  `json:"payment_id"`
	UserID         int64  `json:"user_id"`
	SubscriptionID *int64 `json:"subscription_id,omitempty"`
	PlanName       string `json:"plan_name"`
	Amount         int64  `json:"amount"`
}

// PaymentConfirmed публикуется после подтверждения платежа.
type PaymentConfirmed struct {
	PaymentID      int64     `json:"payment_id"`
	UserID         int64     `json:"user_id"`
	SubscriptionID *int64    `json:"subscription_id,omitempty"`
	Amount         int64     `json:"amount"`
	EndDate        time.Time `json:"end_date,omitzero"`
}

// SubscriptionCancelled публикуется после отмены подписки.
type SubscriptionCancelled struct {
	SubscriptionID int64  `json:"subscription_id"`
	UserID         int64  `json:"user_id"`
	PlanName       string `json:"plan_name"`
	CancelledBy    string `json:"cancelled_by"`
}

// Publisher отправляет событие с ключом маршрутизации.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Noop отбрасывает события. Используется, когда брокер не настроен.
type Noop struct{}

// Publish ничего не делает.
func (Noop) Publish(context.Context, string, any) error { return nil }

// AMQPPublisher публикует события в exchange RabbitMQ.
// Канал amqp не потокобезопасен, поэтому публикация сериализуется.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQPPublisher подключается к брокеру и объявляет топологию биллинга.
func NewAMQPPublisher(ctx context.Context, url, exchange string, retries int, delay time.Duration) (*AMQPPublisher, error) {
	const op = "events.NewAMQPPublisher"

	conn, err := rabbitmq.Connect(ctx, url, retries, delay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, exchange, rabbitmq.BillingQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish отправляет событие в exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	const op = "events.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, routingKey, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает канал и соединение.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	chErr := p.ch.Close()
	connErr := p.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}

// Emit публикует событие и только логирует ошибку: состояние в БД уже зафиксировано.
func Emit(ctx context.Context, log *slog.Logger, pub Publisher, routingKey string, event any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, routingKey, event); err != nil {
		log.Warn("failed to publish event",
			slog.String("routing_key", routingKey),
			sl.Err(err),
		)
	}
}
