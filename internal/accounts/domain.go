package accounts

import (
	"strings"
	"time"

	"github.com/coopledger/coopledger/internal/shared"
)

// Category enumerates chart of accounts categories.
type Category string

const (
	CategoryAsset     Category = "asset"
	CategoryRevenue   Category = "revenue"
	CategoryExpense   Category = "expense"
	CategoryLiability Category = "liability"
	CategoryEquity    Category = "equity"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryAsset, CategoryRevenue, CategoryExpense, CategoryLiability, CategoryEquity:
		return true
	}
	return false
}

// Account is a named bucket transactions and budget lines are attributed to.
type Account struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateAccountInput captures administrative account setup.
type CreateAccountInput struct {
	Code     string
	Name     string
	Category Category
}

// Validate normalises and checks the input.
func (in *CreateAccountInput) Validate() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	in.Category = Category(strings.ToLower(strings.TrimSpace(string(in.Category))))
	if in.Code == "" {
		return shared.Validation("code", "required")
	}
	if in.Name == "" {
		return shared.Validation("name", "required")
	}
	if !in.Category.Valid() {
		return shared.Validation("category", "must be one of asset, revenue, expense, liability, equity")
	}
	return nil
}
