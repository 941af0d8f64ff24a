// Package list отдаёт администратору все платежи.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	authservice "github.com/magabrotheeeer/saas-billing/internal/services/auth"
)

type Service interface {
	List(ctx context.Context) ([]*models.Payment, error)
}

type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список платежей
// @Description Доступно только администратору.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		log.Error("principal not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	if err := authservice.Authorize(principal, models.RoleAdmin); err != nil {
		log.Warn("access denied", slog.Int64("user_id", principal.UserID))
		response.RenderError(w, r, err)
		return
	}

	payments, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to get payments", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("list payments", "count", len(payments))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count": len(payments),
		"payments":   payments,
	}))
}
