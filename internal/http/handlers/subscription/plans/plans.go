// Package plans отдаёт статический каталог тарифов.
package plans

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	services "github.com/magabrotheeeer/saas-billing/internal/services/subscription"
)

type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Каталог тарифов
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} response.Response
// @Router /subscriptions/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"plans": services.Plans(),
	}))
}
