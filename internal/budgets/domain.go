package budgets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/shared"
)

// Category selects which side of the ledger a report compares.
type Category string

const (
	CategoryRevenue Category = "revenue"
	CategoryExpense Category = "expense"
)

// Valid reports whether c can be reported on.
func (c Category) Valid() bool {
	return c == CategoryRevenue || c == CategoryExpense
}

// Budget is the planned amount for one account in one period.
type Budget struct {
	ID          int64           `json:"id"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Category    Category        `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedBy   int64           `json:"created_by"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SetBudgetInput upserts the budget for (period, account).
type SetBudgetInput struct {
	Period    shared.Period
	AccountID int64
	Amount    decimal.Decimal
}

// Validate checks the input.
func (in SetBudgetInput) Validate() error {
	if err := in.Period.Validate(); err != nil {
		return err
	}
	if in.AccountID <= 0 {
		return shared.Validation("account_id", "required")
	}
	if in.Amount.IsNegative() {
		return shared.Validation("amount", "must not be negative")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return shared.Validation("amount", "at most 2 decimal places")
	}
	return nil
}

// AccountRef names an account a report line is attributed to.
type AccountRef struct {
	ID       int64    `json:"id"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Figures is the budget versus actual comparison of one line or total.
type Figures struct {
	Budget          decimal.Decimal `json:"budget"`
	Actual          decimal.Decimal `json:"actual"`
	Variance        decimal.Decimal `json:"variance"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
}

// Line is one account row of a variance report.
type Line struct {
	Account AccountRef `json:"account"`
	Figures
}

// Report compares one category for one period.
type Report struct {
	Period   string   `json:"period"`
	Category Category `json:"category"`
	Lines    []Line   `json:"lines"`
	Totals   Figures  `json:"totals"`
}

// NetReport compares planned and actual net profit.
type NetReport struct {
	Period             string          `json:"period"`
	BudgetRevenue      decimal.Decimal `json:"budget_revenue"`
	BudgetExpense      decimal.Decimal `json:"budget_expense"`
	BudgetNet          decimal.Decimal `json:"budget_net"`
	ActualIncome       decimal.Decimal `json:"actual_income"`
	ActualExpense      decimal.Decimal `json:"actual_expense"`
	ActualNet          decimal.Decimal `json:"actual_net"`
	NetVariance        decimal.Decimal `json:"net_variance"`
	NetVariancePercent decimal.Decimal `json:"net_variance_percent"`
}
