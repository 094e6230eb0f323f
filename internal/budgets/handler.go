package budgets

import (
	"bytes"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/platform/httpx"
	"github.com/coopledger/coopledger/internal/shared"
)

// Handler exposes budgets and variance reports over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/", h.set)
	r.Get("/variance", h.variance)
	r.Get("/variance/net", h.net)
	r.Get("/variance/export", h.export)
}

type setBudgetRequest struct {
	Period    string          `json:"period" validate:"required,datetime=2006-01"`
	AccountID int64           `json:"account_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req setBudgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := shared.ParsePeriod(req.Period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	budget, err := h.service.SetBudget(r.Context(), actorID, SetBudgetInput{Period: period, AccountID: req.AccountID, Amount: req.Amount})
	if err != nil {
		h.logger.Warn("set budget", slog.Int64("actor_id", actorID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, budget)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	period, err := httpx.PeriodParam(r, "period", shared.PeriodOf(h.now()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	budgets, err := h.service.ListBudgets(r.Context(), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if budgets == nil {
		budgets = []Budget{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": period.String(), "budgets": budgets})
}

func (h *Handler) report(r *http.Request) (Report, error) {
	period, err := httpx.PeriodParam(r, "period", shared.PeriodOf(h.now()))
	if err != nil {
		return Report{}, err
	}
	category := Category(r.URL.Query().Get("category"))
	if category == "" {
		category = CategoryExpense
	}
	return h.service.ComputeVariance(r.Context(), period, category)
}

func (h *Handler) variance(w http.ResponseWriter, r *http.Request) {
	report, err := h.report(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) net(w http.ResponseWriter, r *http.Request) {
	period, err := httpx.PeriodParam(r, "period", shared.PeriodOf(h.now()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.NetVariance(r.Context(), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	report, err := h.report(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var (
		buf bytes.Buffer
		ext string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		err = WriteVarianceCSV(&buf, report)
		ext = ".csv"
	case "xlsx":
		err = WriteVarianceXLSX(&buf, report)
		ext = ".xlsx"
	default:
		httpx.RespondError(w, shared.Validation("format", "must be csv or xlsx"))
		return
	}
	if err != nil {
		h.logger.Error("export variance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	filename := "variance-" + string(report.Category) + "-" + report.Period + ext
	w.Header().Set("Content-Type", mime.TypeByExtension(ext))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
