// Package confirm подтверждает платёж и активирует связанную подписку.
package confirm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Request подтверждаемый платёж.
type Request struct {
	PaymentID int64 `json:"payment_id" validate:"required,gt=0"`
}

type Service interface {
	Confirm(ctx context.Context, paymentID int64) (*models.Subscription, error)
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
// @Summary Подтвердить платёж
// @Description Повторное подтверждение безопасно.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "ID платежа"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Платёж не найден"
// @Failure 422 {object} response.ErrorResponse
// @Router /payments/confirm-payment [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.confirm"

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

	sub, err := h.service.Confirm(r.Context(), req.PaymentID)
	if err != nil {
		log.Error("failed to confirm payment", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("payment confirmed", slog.Int64("payment_id", req.PaymentID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message":      "Payment confirmed and subscription activated",
		"subscription": sub,
	}))
}
