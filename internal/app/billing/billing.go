package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/saas-billing/internal/cache"
	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/events"
	"github.com/magabrotheeeer/saas-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/saas-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/migrations"
	authservice "github.com/magabrotheeeer/saas-billing/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/saas-billing/internal/services/payment"
	platformservice "github.com/magabrotheeeer/saas-billing/internal/services/platform"
	subservice "github.com/magabrotheeeer/saas-billing/internal/services/subscription"
	"github.com/magabrotheeeer/saas-billing/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервер биллинга и его внешние подключения.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	cache     *cache.Cache
	publisher *events.AMQPPublisher
}

// Deps внешние зависимости, из которых собирается обработчик.
// Cache и Publisher необязательны.
type Deps struct {
	Storage   *repository.Storage
	Cache     platformservice.Cache
	Publisher events.Publisher
	Registry  *prometheus.Registry
}

// NewHandler собирает сервисы поверх deps и возвращает роутер со всеми маршрутами.
func NewHandler(cfg *config.Config, logger *slog.Logger, deps Deps) http.Handler {
	m := metrics.New(deps.Registry)

	pub := deps.Publisher
	if pub == nil {
		pub = events.Noop{}
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	payments := paymentservice.New(deps.Storage, deps.Storage, pub, m, cfg.Payments, logger)

	svc := Services{
		Auth:          authservice.NewAuthService(deps.Storage, jwtMaker, logger),
		Payments:      payments,
		Subscriptions: subservice.NewSubscriptionService(deps.Storage, deps.Storage, payments, pub, m, cfg.Payments.PricePerDay, logger),
		Platforms:     platformservice.New(deps.Storage, deps.Cache, cfg.RedisConnection.CatalogTTL, logger),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, svc, m, deps.Registry, cfg.CORS, cfg.RateLimit)
	return router
}

// New подключается к БД, применяет миграции и поднимает необязательные Redis и RabbitMQ.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{logger: logger, db: db}
	deps := Deps{Storage: db, Registry: prometheus.NewRegistry()}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.RedisConnection.Address != "" {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		app.cache = cacheRedis
		deps.Cache = cacheRedis
	} else {
		logger.Info("redis address is empty, platform catalog cache disabled")
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := events.NewAMQPPublisher(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			app.closeAll()
			return nil, err
		}
		app.publisher = pub
		deps.Publisher = pub
	} else {
		logger.Info("rabbitmq url is empty, domain events disabled")
	}

	app.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      NewHandler(cfg, logger, deps),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return app, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.closeAll()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.closeAll()
		return err
	}
}

func (a *App) closeAll() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq publisher", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close storage", sl.Err(err))
	}
}
