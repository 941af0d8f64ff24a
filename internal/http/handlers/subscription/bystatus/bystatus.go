// Package bystatus отдаёт подписки текущего пользователя в заданном статусе
// после пересчёта их состояния.
package bystatus

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
)

type Service interface {
	ListByStatus(ctx context.Context, principal models.Principal, status models.SubscriptionStatus) ([]*models.Subscription, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
	status  models.SubscriptionStatus
}

// New создаёт обработчик для одного статуса (active или expired).
func New(log *slog.Logger, service Service, status models.SubscriptionStatus) *Handler {
	return &Handler{
		log:     log,
		service: service,
		status:  status,
	}
}

// ServeHTTP godoc
// @Summary Подписки пользователя по статусу
// @Tags Subscriptions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /subscriptions/active [get]
// @Router /subscriptions/expired [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.bystatus"

	log := h.log.With(
		slog.String("op", op),
		slog.String("status", string(h.status)),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	principal, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		log.Error("principal not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	subs, err := h.service.ListByStatus(r.Context(), principal, h.status)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	if subs == nil {
		subs = []*models.Subscription{}
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count":    len(subs),
		"subscriptions": subs,
	}))
}
