package login

import (
	"context"

	authservice "github.com/magabrotheeeer/saas-billing/internal/services/auth"
)

// Service описывает вход пользователя по email и паролю.
type Service interface {
	Login(ctx context.Context, email, password string) (*authservice.Token, error)
}
