// Package platform управляет каталогом платформ и их тарифами.
package platform

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/saas-billing/internal/lib/apperr"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

const catalogKey = "platforms:all"

// Repository описывает методы хранилища для каталога платформ.
type Repository interface {
	CreatePlatform(ctx context.Context, p models.Platform) (int64, error)
	GetPlatform(ctx context.Context, id int64) (*models.Platform, error)
	ListPlatforms(ctx context.Context) ([]*models.Platform, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Service отдаёт каталог платформ, кешируя его в Redis.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт Service. cache может быть nil: тогда каталог читается из БД каждый раз.
func New(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl, log: log}
}

// List возвращает каталог платформ. Ошибки кеша не прерывают запрос.
func (s *Service) List(ctx context.Context) ([]*models.Platform, error) {
	const op = "services.platform.List"

	if s.cache != nil {
		var cached []*models.Platform
		found, err := s.cache.Get(ctx, catalogKey, &cached)
		if err != nil {
			s.log.Warn("failed to read platforms from cache", sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	platforms, err := s.repo.ListPlatforms(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	if platforms == nil {
		platforms = []*models.Platform{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogKey, platforms, s.ttl); err != nil {
			s.log.Warn("failed to cache platforms", sl.Err(err))
		}
	}
	return platforms, nil
}

// Create добавляет платформу и сбрасывает кеш каталога.
func (s *Service) Create(ctx context.Context, p models.Platform) (*models.Platform, error) {
	const op = "services.platform.Create"

	id, err := s.repo.CreatePlatform(ctx, p)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	p.ID = id

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, catalogKey); err != nil {
			s.log.Warn("failed to invalidate platforms cache", sl.Err(err))
		}
	}
	s.log.Info("platform created", slog.Int64("platform_id", id), slog.String("name", p.Name))
	return &p, nil
}

// Plans возвращает тарифы платформы.
func (s *Service) Plans(ctx context.Context, platformID int64) ([]models.Plan, error) {
	const op = "services.platform.Plans"

	if _, err := s.repo.GetPlatform(ctx, platformID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, op, "Platform not found", err)
		}
		return nil, apperr.Wrap(apperr.Internal, op, "internal error", err)
	}
	return PlansFor(platformID), nil
}
