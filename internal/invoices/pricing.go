package invoices

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/shared"
)

const (
	moneyPlaces    = 2
	quantityPlaces = 3
)

// PriceItems validates submitted lines and computes each total_price along
// with the invoice total. Blank descriptions are handled per policy.
func PriceItems(inputs []ItemInput, policy ItemPolicy) ([]Item, decimal.Decimal, error) {
	items := make([]Item, 0, len(inputs))
	total := decimal.Zero
	for i, in := range inputs {
		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			if policy == ItemPolicyReject {
				return nil, decimal.Zero, shared.Validation(itemField(i, "description"), "required")
			}
			continue
		}
		if !in.Quantity.IsPositive() {
			return nil, decimal.Zero, shared.Validation(itemField(i, "quantity"), "must be greater than zero")
		}
		if !in.Quantity.Equal(in.Quantity.Round(quantityPlaces)) {
			return nil, decimal.Zero, shared.Validation(itemField(i, "quantity"), "at most 3 decimal places")
		}
		if !in.UnitPrice.IsPositive() {
			return nil, decimal.Zero, shared.Validation(itemField(i, "unit_price"), "must be greater than zero")
		}
		if !in.UnitPrice.Equal(in.UnitPrice.Round(moneyPlaces)) {
			return nil, decimal.Zero, shared.Validation(itemField(i, "unit_price"), "at most 2 decimal places")
		}
		line := in.Quantity.Mul(in.UnitPrice).Round(moneyPlaces)
		items = append(items, Item{
			ItemType:    strings.TrimSpace(in.ItemType),
			Description: desc,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TotalPrice:  line,
		})
		total = total.Add(line)
	}
	if len(items) == 0 {
		return nil, decimal.Zero, shared.Validation("items", "at least one item with a description is required")
	}
	return items, total, nil
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
