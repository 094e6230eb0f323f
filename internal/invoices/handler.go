package invoices

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/platform/httpx"
	"github.com/coopledger/coopledger/internal/shared"
)

// Handler exposes invoice operations over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/next-number", h.nextNumber)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.show)
		r.Delete("/", h.delete)
		r.Put("/items", h.replaceItems)
		r.Post("/status", h.changeStatus)
		r.Post("/payments", h.registerPayment)
	})
}

type itemRequest struct {
	ItemType    string          `json:"item_type" validate:"max=32"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type createInvoiceRequest struct {
	CustomerID      *int64        `json:"customer_id" validate:"omitempty,gt=0"`
	CustomerName    string        `json:"customer_name" validate:"required,max=128"`
	CustomerContact string        `json:"customer_contact" validate:"max=128"`
	InvoiceDate     string        `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	DueDate         string        `json:"due_date" validate:"required,datetime=2006-01-02"`
	Notes           string        `json:"notes"`
	Items           []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type replaceItemsRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent paid overdue cancelled"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func toItemInputs(reqs []itemRequest) []ItemInput {
	out := make([]ItemInput, len(reqs))
	for i, it := range reqs {
		out[i] = ItemInput{ItemType: it.ItemType, Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return out
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := uuid.Nil
	if raw := strings.TrimSpace(r.Header.Get("Idempotency-Key")); raw != "" {
		key, err = uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, shared.Validation("idempotency_key", "must be a uuid"))
			return
		}
	}
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoiceDate, err := httpx.ParseDate("invoice_date", req.InvoiceDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dueDate, err := httpx.ParseDate("due_date", req.DueDate)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	header := Header{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		InvoiceDate:     invoiceDate,
		DueDate:         dueDate,
		Notes:           req.Notes,
	}
	inv, created, err := h.service.CreateInvoiceOnce(r.Context(), key, actorID, header, toItemInputs(req.Items))
	if err != nil {
		h.logger.Warn("create invoice", slog.Int64("actor_id", actorID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	httpx.JSON(w, status, inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("period"); raw != "" {
		period, err := shared.ParsePeriod(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Period = &period
	}
	invs, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if invs == nil {
		invs = []Invoice{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invs})
}

func (h *Handler) nextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.service.NextNumber(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"invoice_number": number})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) replaceItems(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req replaceItemsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.ReplaceItems(r.Context(), actorID, id, toItemInputs(req.Items))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.ChangeStatus(r.Context(), actorID, id, Status(req.Status))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.RegisterPayment(r.Context(), actorID, id, req.Amount)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), actorID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	actorID, err := httpx.ActorID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	return actorID, id, true
}
