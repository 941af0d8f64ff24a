// Package services реализует жизненный цикл подписок: создание, ленивую
// переоценку статуса при чтении, отмену, продление и подписку на платформу.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/saas-billing/internal/events"
	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	"github.com/magabrotheeeer/saas-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

// Repository описывает методы хранилища, нужные сервису подписок.
type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetPlatform(ctx context.Context, id int64) (*models.Platform, error)
	CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error)
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	FindActiveSubscription(ctx context.Context, userID int64, planName string) (*models.Subscription, error)
	FindActivePlatformSubscription(ctx context.Context, userID, platformID int64) (*models.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID int64) ([]*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub models.Subscription) error
	FindLatestPaymentBySubscription(ctx context.Context, subscriptionID int64) (*models.Payment, error)
}

// Transactor открывает транзакцию хранилища.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CheckoutCreator создаёт платёжную сессию.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, userID int64, planName string, amount int64, subscriptionID *int64) (*models.Checkout, error)
}

// PlatformSubscription результат подписки на платформу.
type PlatformSubscription struct {
	Subscription *models.Subscription `json:"subscription"`
	Checkout     *models.Checkout     `json:"checkout"`
}

// SubscriptionService управляет подписками.
type SubscriptionService struct {
	repo        Repository
	tx          Transactor
	checkout    CheckoutCreator
	events      events.Publisher
	metrics     *metrics.Metrics
	pricePerDay int64
	now         func() time.Time
	log         *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(
	repo Repository,
	tx Transactor,
	checkout CheckoutCreator,
	pub events.Publisher,
	m *metrics.Metrics,
	pricePerDay int64,
	log *slog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		repo:        repo,
		tx:          tx,
		checkout:    checkout,
		events:      pub,
		metrics:     m,
		pricePerDay: pricePerDay,
		now:         time.Now,
		log:         log,
	}
}

// WithClock подменяет источник текущего времени.
func (s *SubscriptionService) WithClock(now func() time.Time) *SubscriptionService {
	s.now = now
	return s
}

// Create создаёт подписку в статусе pending на durationDays дней.
func (s *SubscriptionService) Create(ctx context.Context, userID int64, planName string, durationDays int) (*models.Subscription, error) {
	const op = "services.subscription.Create"

	if err := checkDays(op, "duration_days", durationDays); err != nil {
		return nil, err
	}

	var created *models.Subscription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
			return storageErr(op, "User not found", err)
		}

		_, err := s.repo.FindActiveSubscription(ctx, userID, planName)
		switch {
		case err == nil:
			return apperr.New(apperr.Conflict, op, "User already has an active subscription for this plan")
		case !errors.Is(err, repository.ErrNotFound):
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}

		created, err = s.insertPending(ctx, userID, nil, planName, durationDays)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription created",
		slog.Int64("subscription_id", created.ID),
		slog.Int64("user_id", userID),
		slog.String("plan_name", planName),
	)
	return created, nil
}

func (s *SubscriptionService) insertPending(ctx context.Context, userID int64, platformID *int64, planName string, durationDays int) (*models.Subscription, error) {
	const op = "services.subscription.insertPending"

	today := Today(s.now())
	end := today.AddDate(0, 0, durationDays)
	if !end.After(today) {
		return nil, apperr.New(apperr.InvalidInput, op, "duration_days is out of range")
	}
	sub := models.Subscription{
		UserID:     userID,
		PlatformID: platformID,
		PlanName:   planName,
		StartDate:  today,
		EndDate:    end,
		Status:     models.SubscriptionPending,
	}
	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	sub.ID = id
	s.metrics.Transition(string(models.SubscriptionPending))
	return &sub, nil
}

// refresh переоценивает статус подписки и записывает изменение в хранилище.
// Вызывается внутри транзакции чтения.
func (s *SubscriptionService) refresh(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	const op = "services.subscription.refresh"

	payment, err := s.repo.FindLatestPaymentBySubscription(ctx, sub.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
		}
		payment = nil
	}

	updated, changed := EvaluateStatus(*sub, payment, s.now())
	if !changed {
		return sub, nil
	}
	if err := s.repo.UpdateSubscription(ctx, updated); err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	s.metrics.Transition(string(updated.Status))
	s.log.Debug("subscription status re-evaluated",
		slog.Int64("subscription_id", updated.ID),
		slog.String("from", string(sub.Status)),
		slog.String("to", string(updated.Status)),
	)
	return &updated, nil
}

func (s *SubscriptionService) listRefreshed(ctx context.Context, userID int64) ([]*models.Subscription, error) {
	const op = "services.subscription.listRefreshed"

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	result := make([]*models.Subscription, 0, len(subs))
	for _, sub := range subs {
		fresh, err := s.refresh(ctx, sub)
		if err != nil {
			return nil, err
		}
		result = append(result, fresh)
	}
	return result, nil
}

// List возвращает подписки пользователя с актуальными статусами.
// Пустой список даёт NotFound.
func (s *SubscriptionService) List(ctx context.Context, userID int64) ([]*models.Subscription, error) {
	const op = "services.subscription.List"

	var result []*models.Subscription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.listRefreshed(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, apperr.New(apperr.NotFound, op, "No subscriptions found for this user")
	}
	return result, nil
}

// ListByStatus переоценивает подписки принципала и возвращает те, что в статусе status.
func (s *SubscriptionService) ListByStatus(ctx context.Context, principal models.Principal, status models.SubscriptionStatus) ([]*models.Subscription, error) {
	var result []*models.Subscription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		all, err := s.listRefreshed(ctx, principal.UserID)
		if err != nil {
			return err
		}
		result = make([]*models.Subscription, 0, len(all))
		for _, sub := range all {
			if sub.Status == status {
				result = append(result, sub)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CheckStatus переоценивает одну подписку.
func (s *SubscriptionService) CheckStatus(ctx context.Context, subscriptionID int64) (*models.Subscription, error) {
	const op = "services.subscription.CheckStatus"

	var result *models.Subscription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		sub, err := s.repo.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return storageErr(op, "Subscription not found", err)
		}
		result, err = s.refresh(ctx, sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel отменяет активную подписку. Отменить может владелец или администратор.
func (s *SubscriptionService) Cancel(ctx context.Context, subscriptionID int64, principal models.Principal) (*models.Subscription, error) {
	const op = "services.subscription.Cancel"

	var result *models.Subscription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		sub, err := s.repo.GetSubscription(ctx, subscriptionID)
		if err != nil {
			return storageErr(op, "Subscription not found", err)
		}
		if sub.UserID != principal.UserID && !principal.IsAdmin() {
			return apperr.New(apperr.Forbidden, op, "You don't have permission")
		}
		if sub.Status != models.SubscriptionActive {
			return apperr.New(apperr.InvalidState, op, "Subscription is not active")
		}

		sub.Status = models.SubscriptionCancelled
		if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCancel(ctx, result, principal)
	return result, nil
}

func (s *SubscriptionService) afterCancel(ctx context.Context, sub *models.Subscription, by models.Principal) {
	s.metrics.Transition(string(models.SubscriptionCancelled))
	s.log.Info("subscription cancelled",
		slog.Int64("subscription_id", sub.ID),
		slog.String("by", by.Username),
	)
	events.Emit(ctx, s.log, s.events, rabbitmq.RoutingSubscriptionCancelled, events.SubscriptionCancelled{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanName:       sub.PlanName,
		CancelledBy:    by.Username,
	})
}

// Extend продлевает активную подписку владельца на days дней.
// days == 0 означает DefaultExtendDays.
func (s *SubscriptionService) Extend(ctx context.Context, subscriptionID int64, principal models.Principal, days int) (*models.Subscription, error) {
	const op = "services.subscription.Extend"

	if days == 0 {
		days = DefaultExtendDays
	}
	if err := checkDays(op, "days", days); err != nil {
		return nil, err
	}

	var result *models.Subscription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		sub, err := s.repo.GetSubscription(ctx, subscriptionID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}
		if err != nil || sub.UserID != principal.UserID || sub.Status != models.SubscriptionActive {
			return apperr.New(apperr.NotFound, op, "Subscription not found or not active")
		}

		end := sub.EndDate.AddDate(0, 0, days)
		if !end.After(sub.EndDate) {
			return apperr.New(apperr.InvalidInput, op, "days is out of range")
		}
		sub.EndDate = end
		if err := s.repo.UpdateSubscription(ctx, *sub); err != nil {
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription extended",
		slog.Int64("subscription_id", result.ID),
		slog.Int("days", days),
	)
	return result, nil
}

// SubscribeToPlatform заменяет активную подписку пользователя на платформу новой
// подпиской в статусе pending и создаёт для неё платёж на durationDays * pricePerDay.
// Подписка фиксируется до создания платежа. Ошибка платежа возвращается как
// Internal, созданная подписка при этом остаётся.
func (s *SubscriptionService) SubscribeToPlatform(
	ctx context.Context,
	principal models.Principal,
	platformID int64,
	planName string,
	durationDays int,
) (*PlatformSubscription, error) {
	const op = "services.subscription.SubscribeToPlatform"

	if err := checkDays(op, "duration_days", durationDays); err != nil {
		return nil, err
	}

	var (
		created  *models.Subscription
		replaced *models.Subscription
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetPlatform(ctx, platformID); err != nil {
			return storageErr(op, "Platform not found", err)
		}

		existing, err := s.repo.FindActivePlatformSubscription(ctx, principal.UserID, platformID)
		switch {
		case err == nil:
			existing.Status = models.SubscriptionCancelled
			if err := s.repo.UpdateSubscription(ctx, *existing); err != nil {
				return apperr.Wrap(apperr.Internal, op, "internal error", err)
			}
			replaced = existing
		case !errors.Is(err, repository.ErrNotFound):
			return apperr.Wrap(apperr.Internal, op, "internal error", err)
		}

		created, err = s.insertPending(ctx, principal.UserID, &platformID, planName, durationDays)
		return err
	})
	if err != nil {
		return nil, err
	}

	if replaced != nil {
		s.afterCancel(ctx, replaced, principal)
	}

	amount := int64(durationDays) * s.pricePerDay
	checkout, err := s.checkout.CreateCheckout(ctx, principal.UserID, planName, amount, &created.ID)
	if err != nil {
		s.log.Error("checkout failed after platform subscription was committed",
			slog.Int64("subscription_id", created.ID),
			sl.Err(err),
		)
		return nil, apperr.Wrap(apperr.Internal, op, "failed to create checkout", err)
	}

	s.log.Info("platform subscription created",
		slog.Int64("subscription_id", created.ID),
		slog.Int64("platform_id", platformID),
		slog.Int64("payment_id", checkout.PaymentID),
	)
	return &PlatformSubscription{Subscription: created, Checkout: checkout}, nil
}

// checkDays проверяет, что срок n в днях лежит в диапазоне 1..MaxDurationDays.
func checkDays(op, field string, n int) error {
	if n <= 0 {
		return apperr.New(apperr.InvalidInput, op, field+" must be positive")
	}
	if n > MaxDurationDays {
		return apperr.New(apperr.InvalidInput, op, fmt.Sprintf("%s must be at most %d", field, MaxDurationDays))
	}
	return nil
}

// storageErr переводит ErrNotFound в NotFound с сообщением msg, остальное в Internal.
func storageErr(op, msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, op, msg, err)
	}
	return apperr.Wrap(apperr.Internal, op, "internal error", err)
}
