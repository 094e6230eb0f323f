package transactions

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/shared"
)

// Type classifies a financial movement.
type Type string

const (
	TypeIncome   Type = "income"
	TypeExpense  Type = "expense"
	TypeTransfer Type = "transfer"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense || t == TypeTransfer
}

const (
	// DefaultPaymentMethod applies when the caller leaves the method blank.
	DefaultPaymentMethod = "cash"
	// StatusCompleted is the only status recorded movements carry.
	StatusCompleted = "completed"
)

// Transaction is a posted cash movement. Rows are never updated.
type Transaction struct {
	ID            int64           `json:"id"`
	Date          time.Time       `json:"date"`
	Type          Type            `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	AccountID     int64           `json:"account_id"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordInput captures a movement to post.
type RecordInput struct {
	Date          time.Time
	Type          Type
	Amount        decimal.Decimal
	AccountID     int64
	Description   string
	PaymentMethod string
}

// Validate normalises and checks the input.
func (in *RecordInput) Validate() error {
	in.Type = Type(strings.ToLower(strings.TrimSpace(string(in.Type))))
	in.Description = strings.TrimSpace(in.Description)
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if in.PaymentMethod == "" {
		in.PaymentMethod = DefaultPaymentMethod
	}
	if in.Date.IsZero() {
		return shared.Validation("date", "required")
	}
	if !in.Type.Valid() {
		return shared.Validation("type", "must be one of income, expense, transfer")
	}
	if !in.Amount.IsPositive() {
		return shared.Validation("amount", "must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return shared.Validation("amount", "at most 2 decimal places")
	}
	if in.AccountID <= 0 {
		return shared.Validation("account_id", "required")
	}
	return nil
}

// Summary aggregates one period. Net is Income minus Expense; transfers are
// excluded from both.
type Summary struct {
	Period  string          `json:"period"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// ListFilter narrows ListTransactions.
type ListFilter struct {
	Period    *shared.Period
	Type      Type
	AccountID int64
	Limit     int
	Offset    int
}
