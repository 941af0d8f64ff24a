package create

import (
	"context"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Service описывает создание подписки.
type Service interface {
	Create(ctx context.Context, userID int64, planName string, durationDays int) (*models.Subscription, error)
}
