// Package services содержит регистрацию, вход и проверку доступа пользователей.
package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	"github.com/magabrotheeeer/saas-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/saas-billing/internal/lib/password"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его ID.
	CreateUser(ctx context.Context, user models.User) (int64, error)
	// GetUserByUsername возвращает пользователя по имени.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUserByEmail возвращает пользователя по электронной почте.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListUsers возвращает всех пользователей.
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Token результат успешного входа.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int64  `json:"user_id"`
}

// AuthService отвечает за регистрацию, вход и проверку токенов.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register создает пользователя с ролью user.
func (s *AuthService) Register(ctx context.Context, username, email, rawPassword string) (*models.User, error) {
	const op = "services.auth.Register"

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.New(apperr.Conflict, op, "Email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, apperr.Wrap(apperr.InvalidInput, op, "password is too long", err)
		}
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Role:         models.RoleUser,
	}
	user.ID, err = s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperr.Wrap(apperr.Conflict, op, "Username or email already registered", err)
		}
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}

	s.log.Info("user registered", slog.Int64("user_id", user.ID), slog.String("username", username))
	return &user, nil
}

// Login проверяет пароль и выпускает токен доступа.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*Token, error) {
	const op = "services.auth.Login"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.Unauthenticated, op, "Invalid credentials")
		}
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, apperr.New(apperr.Unauthenticated, op, "Invalid credentials")
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	return &Token{AccessToken: token, TokenType: "bearer", UserID: user.ID}, nil
}

// Authenticate проверяет токен и возвращает принципала.
// Роль берётся из текущей записи пользователя, а не из токена.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	const op = "services.auth.Authenticate"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return models.Principal{}, apperr.Wrap(apperr.Unauthenticated, op, "Could not validate credentials", err)
	}
	if claims.Subject == "" || claims.Role == "" {
		return models.Principal{}, apperr.New(apperr.Unauthenticated, op, "Could not validate credentials")
	}

	user, err := s.users.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Principal{}, apperr.Wrap(apperr.NotFound, op, "User not found", err)
		}
		return models.Principal{}, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}

	return models.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// Authorize возвращает Forbidden, если роль принципала не равна requiredRole.
func Authorize(principal models.Principal, requiredRole string) error {
	const op = "services.auth.Authorize"
	if principal.Role != requiredRole {
		return apperr.New(apperr.Forbidden, op, "You don't have permission")
	}
	return nil
}

// Me возвращает запись текущего пользователя.
func (s *AuthService) Me(ctx context.Context, principal models.Principal) (*models.User, error) {
	const op = "services.auth.Me"

	user, err := s.users.GetUserByUsername(ctx, principal.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, op, "User not found", err)
		}
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	return user, nil
}

// ListUsers возвращает всех пользователей.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "services.auth.ListUsers"

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	return users, nil
}
