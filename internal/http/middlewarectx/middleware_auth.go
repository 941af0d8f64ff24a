// Package middlewarectx содержит HTTP middleware для проверки токенов доступа
// и ограничения частоты запросов.
//
// JWTMiddleware проверяет наличие токена в заголовке Authorization,
// аутентифицирует его через сервис доступа и кладёт принципала в контекст запроса.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// PrincipalKey ключ принципала в контексте.
const PrincipalKey Key = "principal"

// Authenticator проверяет токен и возвращает принципала.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет Bearer-токен.
//
// Неверный или просроченный токен даёт 401, токен удалённого пользователя 404.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenStr == "" {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			principal, err := auth.Authenticate(r.Context(), tokenStr)
			if err != nil {
				log.Warn("authentication failed", sl.Err(err))
				response.RenderError(w, r, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal возвращает контекст с принципалом.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom достаёт принципала из контекста.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(models.Principal)
	return p, ok
}
