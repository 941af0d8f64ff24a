package checkout

import (
	"context"

	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Service описывает создание платёжной сессии.
type Service interface {
	CreateCheckout(ctx context.Context, userID int64, planName string, amount int64, subscriptionID *int64) (*models.Checkout, error)
}
