package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coopledger/coopledger/internal/platform/httpx"
	"github.com/coopledger/coopledger/internal/shared"
)

// Handler serves the finance overview.
type Handler struct {
	service     *Service
	now         func() time.Time
	trendMonths int
}

// NewHandler builds Handler instance.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// WithTrendMonths sets the trend length used when the request has none.
func (h *Handler) WithTrendMonths(months int) *Handler {
	h.trendMonths = months
	return h
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	period, err := httpx.PeriodParam(r, "period", shared.PeriodOf(h.now()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	if months <= 0 {
		months = h.trendMonths
	}
	snap, err := h.service.Snapshot(r.Context(), period, months)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}
