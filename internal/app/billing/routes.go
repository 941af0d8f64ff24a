// Package billing собирает HTTP-приложение биллинга: маршруты, middleware и сервисы.
package billing

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/saas-billing/docs"
	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/auth/adminonly"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/health"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/payment/checkout"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/payment/confirm"
	paymentlist "github.com/magabrotheeeer/saas-billing/internal/http/handlers/payment/list"
	platformcreate "github.com/magabrotheeeer/saas-billing/internal/http/handlers/platform/create"
	platformlist "github.com/magabrotheeeer/saas-billing/internal/http/handlers/platform/list"
	platformplans "github.com/magabrotheeeer/saas-billing/internal/http/handlers/platform/plans"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/platform/subscribe"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/subscription/bystatus"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/subscription/checkstatus"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/subscription/extend"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/subscription/plans"
	userlist "github.com/magabrotheeeer/saas-billing/internal/http/handlers/users/list"
	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	authservice "github.com/magabrotheeeer/saas-billing/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/saas-billing/internal/services/payment"
	platformservice "github.com/magabrotheeeer/saas-billing/internal/services/platform"
	subservice "github.com/magabrotheeeer/saas-billing/internal/services/subscription"
)

// Services набор сервисов, которые обслуживают маршруты.
type Services struct {
	Auth          *authservice.AuthService
	Subscriptions *subservice.SubscriptionService
	Payments      *paymentservice.PaymentService
	Platforms     *platformservice.Service
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	svc Services,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	corsCfg config.CORS,
	limitCfg config.RateLimit,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		m.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   corsCfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	r.Route("/api", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, svc.Auth).ServeHTTP)

		r.Get("/subscriptions/plans", plans.New(logger).ServeHTTP)
		r.Post("/subscriptions/check-status/{subscription_id}", checkstatus.New(logger, svc.Subscriptions).ServeHTTP)
		r.Get("/subscriptions/{user_id}", list.New(logger, svc.Subscriptions).ServeHTTP)

		r.Get("/platforms", platformlist.New(logger, svc.Platforms).ServeHTTP)
		r.Get("/platforms/{id}/plans", platformplans.New(logger, svc.Platforms).ServeHTTP)

		// Симулятор оплаты вызывается страницей checkout без токена.
		r.Post("/payments/create-checkout-session", checkout.New(logger, svc.Payments).ServeHTTP)
		r.Post("/payments/confirm-payment", confirm.New(logger, svc.Payments).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limitCfg.RPS, limitCfg.Burst))

			r.Get("/auth/me", me.New(logger, svc.Auth).ServeHTTP)
			r.Get("/auth/admin-only", adminonly.New(logger).ServeHTTP)
			r.Get("/users", userlist.New(logger, svc.Auth).ServeHTTP)

			r.Post("/subscriptions", create.New(logger, svc.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/active", bystatus.New(logger, svc.Subscriptions, models.SubscriptionActive).ServeHTTP)
			r.Get("/subscriptions/expired", bystatus.New(logger, svc.Subscriptions, models.SubscriptionExpired).ServeHTTP)
			r.Post("/subscriptions/cancel_subscription", cancel.New(logger, svc.Subscriptions).ServeHTTP)
			r.Post("/subscriptions/extend", extend.New(logger, svc.Subscriptions).ServeHTTP)

			r.Post("/platforms", platformcreate.New(logger, svc.Platforms).ServeHTTP)
			r.Post("/platforms/{id}/subscribe", subscribe.New(logger, svc.Subscriptions).ServeHTTP)

			r.Get("/payments", paymentlist.New(logger, svc.Payments).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
}
