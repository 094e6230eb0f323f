package transactions

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/platform/httpx"
	"github.com/coopledger/coopledger/internal/shared"
)

// Handler exposes transaction recording and summaries over JSON.
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

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.record)
	r.Get("/summary", h.summary)
	r.Get("/trend", h.trend)
}

type recordRequest struct {
	Date          string          `json:"date" validate:"required,datetime=2006-01-02"`
	Type          string          `json:"type" validate:"required,oneof=income expense transfer"`
	Amount        decimal.Decimal `json:"amount"`
	AccountID     int64           `json:"account_id" validate:"required,gt=0"`
	Description   string          `json:"description" validate:"max=500"`
	PaymentMethod string          `json:"payment_method" validate:"max=32"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := httpx.ParseDate("date", req.Date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	txn, err := h.service.RecordTransaction(r.Context(), actorID, RecordInput{
		Date:          date,
		Type:          Type(req.Type),
		Amount:        req.Amount,
		AccountID:     req.AccountID,
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.logger.Warn("record transaction", slog.Int64("actor_id", actorID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Type: Type(q.Get("type"))}
	if raw := q.Get("period"); raw != "" {
		period, err := shared.ParsePeriod(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Period = &period
	}
	if raw := q.Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.RespondError(w, shared.Validation("account_id", "must be a positive integer"))
			return
		}
		filter.AccountID = id
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	txns, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if txns == nil {
		txns = []Transaction{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	period, err := httpx.PeriodParam(r, "period", shared.PeriodOf(h.now()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.PeriodSummary(r.Context(), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) trend(w http.ResponseWriter, r *http.Request) {
	end, err := httpx.PeriodParam(r, "end", shared.PeriodOf(h.now()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		months, err = strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, shared.Validation("months", "must be an integer"))
			return
		}
	}
	trend, err := h.service.Trend(r.Context(), end, months)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"trend": trend})
}
