// Package checkout создаёт платёжную сессию симулятора оплаты.
//
// Сумма проверяется сервисом: неположительная сумма даёт 400.
// Без subscription_id платёж привязывается к последней подписке пользователя на тариф.
package checkout

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
)

// Request параметры платёжной сессии. Amount в минимальных единицах валюты.
type Request struct {
	UserID         int64  `json:"user_id" validate:"required,gt=0"`
	PlanName       string `json:"plan_name" validate:"required"`
	Amount         int64  `json:"amount"`
	SubscriptionID *int64 `json:"subscription_id,omitempty"`
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
// @Summary Создать платёжную сессию
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Параметры платежа"
// @Success 200 {object} response.Response "url и payment_id"
// @Failure 400 {object} response.ErrorResponse "Неверная сумма"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 422 {object} response.ErrorResponse
// @Router /payments/create-checkout-session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.checkout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	checkout, err := h.service.CreateCheckout(r.Context(), req.UserID, req.PlanName, req.Amount, req.SubscriptionID)
	if err != nil {
		log.Error("failed to create checkout", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("checkout created", slog.Int64("payment_id", checkout.PaymentID))
	render.JSON(w, r, response.StatusOKWithData(checkout))
}
