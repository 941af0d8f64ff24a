package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

const paymentColumns = `id, user_id, subscription_id, plan_name, amount, status, session_id, created_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (*models.Payment, error) {
	var p models.Payment
	var status string
	if err := row.Scan(&p.ID, &p.UserID, &p.SubscriptionID, &p.PlanName, &p.Amount,
		&status, &p.SessionID, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Status = models.PaymentStatus(status)
	return &p, nil
}

// CreatePayment сохраняет платёж. ID назначается последовательностью БД,
// session_id защищён ограничением уникальности.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (int64, error) {
	const op = "storage.CreatePayment"
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO payments (user_id, subscription_id, plan_name, amount, status, session_id)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		p.UserID, p.SubscriptionID, p.PlanName, p.Amount, string(p.Status), p.SessionID).Scan(&id)
	if err != nil {
		return 0, mapErr(op, err)
	}
	return id, nil
}

// GetPayment возвращает платёж по ID.
func (s *Storage) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	const op = "storage.GetPayment"
	p, err := scanPayment(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return p, nil
}

// FindLatestPaymentBySubscription возвращает последний платёж, привязанный к подписке.
func (s *Storage) FindLatestPaymentBySubscription(ctx context.Context, subscriptionID int64) (*models.Payment, error) {
	const op = "storage.FindLatestPaymentBySubscription"
	p, err := scanPayment(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE subscription_id = $1 ORDER BY id DESC LIMIT 1`,
		subscriptionID))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return p, nil
}

// UpdatePaymentStatus меняет статус платежа.
func (s *Storage) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	const op = "storage.UpdatePaymentStatus"

	res, err := s.conn(ctx).ExecContext(ctx, `UPDATE payments SET status = $1 WHERE id = $2`, string(status), id)
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

// ListPayments возвращает все платежи по возрастанию ID.
func (s *Storage) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	const op = "storage.ListPayments"

	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
