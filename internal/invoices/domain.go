package invoices

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/shared"
)

// Status enumerates invoice lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusDraft:   {StatusSent, StatusCancelled},
	StatusSent:    {StatusPaid, StatusOverdue, StatusCancelled},
	StatusOverdue: {StatusPaid, StatusCancelled},
}

// CanTransition reports whether an invoice may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Deletable reports whether an invoice in this status may be removed.
func (s Status) Deletable() bool {
	return s == StatusDraft || s == StatusCancelled
}

// ItemPolicy decides what happens to submitted items with a blank description.
type ItemPolicy string

const (
	// ItemPolicySkip silently drops blank rows left over from the entry form.
	ItemPolicySkip ItemPolicy = "skip"
	// ItemPolicyReject fails the whole request.
	ItemPolicyReject ItemPolicy = "reject"
)

// Invoice is the billing document header.
type Invoice struct {
	ID              int64           `json:"id"`
	Number          string          `json:"invoice_number"`
	CustomerID      *int64          `json:"customer_id,omitempty"`
	CustomerName    string          `json:"customer_name"`
	CustomerContact string          `json:"customer_contact"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	DueDate         time.Time       `json:"due_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	Status          Status          `json:"status"`
	Notes           string          `json:"notes"`
	CreatedBy       int64           `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Items           []Item          `json:"items,omitempty"`
}

// Outstanding returns the unpaid remainder.
func (inv Invoice) Outstanding() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

// Item is a persisted invoice line.
type Item struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	ItemType    string          `json:"item_type"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// ItemInput is a submitted line before pricing.
type ItemInput struct {
	ItemType    string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Header carries the invoice fields supplied by the caller.
type Header struct {
	CustomerID      *int64
	CustomerName    string
	CustomerContact string
	InvoiceDate     time.Time
	DueDate         time.Time
	Notes           string
}

func (h *Header) normalise() error {
	h.CustomerName = strings.TrimSpace(h.CustomerName)
	h.CustomerContact = strings.TrimSpace(h.CustomerContact)
	h.Notes = strings.TrimSpace(h.Notes)
	if h.CustomerName == "" {
		return shared.Validation("customer_name", "required")
	}
	if h.InvoiceDate.IsZero() {
		return shared.Validation("invoice_date", "required")
	}
	if h.DueDate.IsZero() {
		return shared.Validation("due_date", "required")
	}
	if h.DueDate.Before(h.InvoiceDate) {
		return shared.Validation("due_date", "must not precede invoice_date")
	}
	if h.CustomerID != nil && *h.CustomerID <= 0 {
		return shared.Validation("customer_id", "must be positive")
	}
	return nil
}

// NewInvoice is what the repository inserts as the draft header.
type NewInvoice struct {
	Number    string
	Header    Header
	CreatedBy int64
}

// ListFilter narrows ListInvoices.
type ListFilter struct {
	Status Status
	Period *shared.Period
	Limit  int
}
