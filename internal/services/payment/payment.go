// Package payment имитирует платёжный шлюз: создаёт ожидающие платежи
// со ссылкой на оплату и подтверждает их, активируя подписку.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/events"
	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	"github.com/magabrotheeeer/saas-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

// Repository описывает методы хранилища, нужные платёжному сервису.
type Repository interface {
	CreatePayment(ctx context.Context, p models.Payment) (int64, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error
	ListPayments(ctx context.Context) ([]*models.Payment, error)
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	FindLatestSubscription(ctx context.Context, userID int64, planName string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub models.Subscription) error
}

// Transactor открывает транзакцию хранилища.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentService создаёт и подтверждает платежи.
type PaymentService struct {
	repo        Repository
	tx          Transactor
	events      events.Publisher
	metrics     *metrics.Metrics
	checkoutURL string
	renewalDays int
	now         func() time.Time
	newSession  func() string
	log         *slog.Logger
}

// New создаёт PaymentService.
func New(repo Repository, tx Transactor, pub events.Publisher, m *metrics.Metrics, cfg config.Payments, log *slog.Logger) *PaymentService {
	return &PaymentService{
		repo:        repo,
		tx:          tx,
		events:      pub,
		metrics:     m,
		checkoutURL: cfg.CheckoutBaseURL,
		renewalDays: cfg.RenewalDays,
		now:         time.Now,
		newSession:  uuid.NewString,
		log:         log,
	}
}

// WithClock подменяет источник текущего времени.
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

// WithSessionGenerator подменяет генератор токенов платёжной сессии.
func (s *PaymentService) WithSessionGenerator(gen func() string) *PaymentService {
	s.newSession = gen
	return s
}

// CreateCheckout создаёт платёж в статусе pending и возвращает ссылку на оплату.
// Без subscriptionID платёж привязывается к последней подписке пользователя на план.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID int64, planName string, amount int64, subscriptionID *int64) (*models.Checkout, error) {
	const op = "services.payment.CreateCheckout"

	if amount <= 0 {
		return nil, apperr.New(apperr.InvalidInput, op, "Invalid payment amount")
	}

	p := models.Payment{
		UserID:    userID,
		PlanName:  planName,
		Amount:    amount,
		Status:    models.PaymentPending,
		SessionID: s.newSession(),
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		sub, err := s.linkedSubscription(ctx, userID, planName, subscriptionID)
		if err != nil {
			return err
		}
		p.SubscriptionID = &sub.ID

		p.ID, err = s.repo.CreatePayment(ctx, p)
		if err != nil {
			return apperr.Wrap(apperr.Internal, op, "Failed to create payment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	checkoutURL, err := s.buildURL(p.ID, p.SessionID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}

	s.metrics.CheckoutCreated()
	s.log.Info("checkout session created",
		slog.Int64("payment_id", p.ID),
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount),
	)
	events.Emit(ctx, s.log, s.events, rabbitmq.RoutingCheckoutCreated, events.CheckoutCreated{
		PaymentID:      p.ID,
		UserID:         userID,
		SubscriptionID: p.SubscriptionID,
		PlanName:       planName,
		Amount:         amount,
	})

	return &models.Checkout{URL: checkoutURL, PaymentID: p.ID}, nil
}

func (s *PaymentService) linkedSubscription(ctx context.Context, userID int64, planName string, subscriptionID *int64) (*models.Subscription, error) {
	const op = "services.payment.linkedSubscription"

	var (
		sub *models.Subscription
		err error
	)
	if subscriptionID != nil {
		sub, err = s.repo.GetSubscription(ctx, *subscriptionID)
		if err == nil && sub.UserID != userID {
			err = repository.ErrNotFound
		}
	} else {
		sub, err = s.repo.FindLatestSubscription(ctx, userID, planName)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, op, "Subscription not found", err)
		}
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	return sub, nil
}

// buildURL возвращает ссылку вида <base>?payment_id=<id>&session=<token>.
func (s *PaymentService) buildURL(paymentID int64, session string) (string, error) {
	const op = "services.payment.buildURL"

	u, err := url.Parse(s.checkoutURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	q := u.Query()
	q.Set("payment_id", strconv.FormatInt(paymentID, 10))
	q.Set("session", session)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Confirm подтверждает платёж и активирует привязанную подписку.
// Если срок подписки уже истёк, он отсчитывается заново от сегодняшнего дня.
// Повторный вызов безопасен. Возвращает nil, если подписки нет.
func (s *PaymentService) Confirm(ctx context.Context, paymentID int64) (*models.Subscription, error) {
	const op = "services.payment.Confirm"

	var (
		payment   *models.Payment
		sub       *models.Subscription
		activated bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.repo.GetPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.Wrap(apperr.NotFound, op, "Payment not found", err)
			}
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}

		if err := s.repo.UpdatePaymentStatus(ctx, paymentID, models.PaymentConfirmed); err != nil {
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}
		payment.Status = models.PaymentConfirmed

		if payment.SubscriptionID == nil {
			return nil
		}
		sub, err = s.repo.GetSubscription(ctx, *payment.SubscriptionID)
		if errors.Is(err, repository.ErrNotFound) {
			sub = nil
			return nil
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}

		today := s.now().UTC().Truncate(24 * time.Hour)
		activated = sub.Status != models.SubscriptionActive
		sub.Status = models.SubscriptionActive
		if sub.EndDate.Before(today) {
			sub.EndDate = today.AddDate(0, 0, s.renewalDays)
		}
		if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentConfirmed()
	event := events.PaymentConfirmed{
		PaymentID:      payment.ID,
		UserID:         payment.UserID,
		SubscriptionID: payment.SubscriptionID,
		Amount:         payment.Amount,
	}
	if activated {
		s.metrics.Transition(string(models.SubscriptionActive))
	}
	if sub != nil {
		event.EndDate = sub.EndDate
		s.log.Info("payment confirmed, subscription activated",
			slog.Int64("payment_id", paymentID),
			slog.Int64("subscription_id", sub.ID),
		)
	} else {
		s.log.Info("payment confirmed without subscription", slog.Int64("payment_id", paymentID))
	}
	events.Emit(ctx, s.log, s.events, rabbitmq.RoutingPaymentConfirmed, event)

	return sub, nil
}

// List возвращает все платежи.
func (s *PaymentService) List(ctx context.Context) ([]*models.Payment, error) {
	const op = "services.payment.List"

	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	return payments, nil
}
