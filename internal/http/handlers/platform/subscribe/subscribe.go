// Package subscribe оформляет подписку на платформу и создаёт платёжную сессию.
//
// Прежняя активная подписка пользователя на эту платформу отменяется.
package subscribe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	services "github.com/magabrotheeeer/saas-billing/internal/services/subscription"
)

// Request тариф и срок подписки на платформу.
type Request struct {
	PlanName     string `json:"plan_name" validate:"required"`
	DurationDays int    `json:"duration_days" validate:"required,gt=0,max=3650"`
}

type Service interface {
	SubscribeToPlatform(ctx context.Context, principal models.Principal, platformID int64, planName string, durationDays int) (*services.PlatformSubscription, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подписаться на платформу
// @Tags Platforms
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID платформы"
// @Param request body Request true "Тариф и срок"
// @Success 200 {object} response.Response "Подписка и ссылка на оплату"
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Платформа не найдена"
// @Failure 500 {object} response.ErrorResponse "Платёж не создан"
// @Router /platforms/{id}/subscribe [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.platform.subscribe"

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

	platformID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || platformID <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid platform id"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.SubscribeToPlatform(r.Context(), principal, platformID, req.PlanName, req.DurationDays)
	if err != nil {
		log.Error("failed to subscribe to platform", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("subscribed to platform",
		slog.Int64("platform_id", platformID),
		slog.Int64("subscription_id", res.Subscription.ID),
		slog.Int64("payment_id", res.Checkout.PaymentID),
	)
	render.JSON(w, r, response.StatusOKWithData(res))
}
