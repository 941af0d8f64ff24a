// Package cancel реализует отмену подписки администратором.
//
// Роль проверяется до чтения тела запроса. Отменить можно только активную подписку.
package cancel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	authservice "github.com/magabrotheeeer/saas-billing/internal/services/auth"
)

// Request подписка для отмены.
type Request struct {
	SubscriptionID int64 `json:"subscription_id" validate:"required,gt=0"`
}

type Service interface {
	Cancel(ctx context.Context, subscriptionID int64, principal models.Principal) (*models.Subscription, error)
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
// @Summary Отменить подписку
// @Description Доступно только администратору.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Подписка не активна"
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /subscriptions/cancel_subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

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

	if _, err := h.service.Cancel(r.Context(), req.SubscriptionID, principal); err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("subscription cancelled", slog.Int64("subscription_id", req.SubscriptionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"msg": "Subscription cancelled successfully",
	}))
}
