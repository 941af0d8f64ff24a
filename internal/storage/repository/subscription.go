package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

const subscriptionColumns = `id, user_id, platform_id, plan_name, start_date, end_date, status`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*models.Subscription, error) {
	var sub models.Subscription
	var status string
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.PlatformID, &sub.PlanName,
		&sub.StartDate, &sub.EndDate, &status); err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatus(status)
	return &sub, nil
}

// CreateSubscription вставляет новую подписку и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int64, error) {
	const op = "storage.CreateSubscription"
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO subscriptions (user_id, platform_id, plan_name, start_date, end_date, status)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		sub.UserID, sub.PlatformID, sub.PlanName, sub.StartDate, sub.EndDate, string(sub.Status)).Scan(&id)
	if err != nil {
		return 0, mapErr(op, err)
	}
	return id, nil
}

// GetSubscription возвращает подписку по ID.
func (s *Storage) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return sub, nil
}

// FindActiveSubscription возвращает активную подписку пользователя на план.
func (s *Storage) FindActiveSubscription(ctx context.Context, userID int64, planName string) (*models.Subscription, error) {
	const op = "storage.FindActiveSubscription"
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE user_id = $1 AND plan_name = $2 AND status = 'active'
			  ORDER BY id DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.conn(ctx).QueryRowContext(ctx, query, userID, planName))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return sub, nil
}

// FindActivePlatformSubscription возвращает активную подписку пользователя на платформу.
func (s *Storage) FindActivePlatformSubscription(ctx context.Context, userID, platformID int64) (*models.Subscription, error) {
	const op = "storage.FindActivePlatformSubscription"
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE user_id = $1 AND platform_id = $2 AND status = 'active'
			  ORDER BY id DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.conn(ctx).QueryRowContext(ctx, query, userID, platformID))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return sub, nil
}

// FindLatestSubscription возвращает самую свежую подписку пользователя на план в любом статусе.
func (s *Storage) FindLatestSubscription(ctx context.Context, userID int64, planName string) (*models.Subscription, error) {
	const op = "storage.FindLatestSubscription"
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
			  WHERE user_id = $1 AND plan_name = $2
			  ORDER BY id DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.conn(ctx).QueryRowContext(ctx, query, userID, planName))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return sub, nil
}

// ListSubscriptionsByUser возвращает все подписки пользователя по возрастанию ID.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userID int64) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptionsByUser"

	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateSubscription записывает статус и дату окончания подписки.
func (s *Storage) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpdateSubscription"

	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE subscriptions SET status = $1, end_date = $2 WHERE id = $3`,
		string(sub.Status), sub.EndDate, sub.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
