package perf

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coopledger/coopledger/internal/budgets"
	"github.com/coopledger/coopledger/internal/invoices"
	"github.com/coopledger/coopledger/internal/shared"
)

func BenchmarkPriceItems(b *testing.B) {
	inputs := make([]invoices.ItemInput, 50)
	for i := range inputs {
		inputs[i] = invoices.ItemInput{
			ItemType:    "service",
			Description: fmt.Sprintf("line %d", i),
			Quantity:    decimal.RequireFromString("1.250"),
			UnitPrice:   decimal.RequireFromString("19.99"),
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := invoices.PriceItems(inputs, invoices.ItemPolicySkip); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkNextNumber(b *testing.B) {
	period := shared.Period{Year: 2024, Month: time.March}
	latest := invoices.FormatNumber(period, 4321)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := invoices.NextNumber(latest, period); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuildVarianceReport(b *testing.B) {
	const accounts = 200
	refs := make([]budgets.AccountRef, accounts)
	planned := make(map[int64]decimal.Decimal, accounts)
	actual := make(map[int64]decimal.Decimal, accounts)
	for i := 0; i < accounts; i++ {
		id := int64(i + 1)
		refs[i] = budgets.AccountRef{ID: id, Code: fmt.Sprintf("5%03d", i), Name: "expense", Category: budgets.CategoryExpense}
		if i%3 != 0 {
			planned[id] = decimal.NewFromInt(int64(1000 + i))
		}
		if i%4 != 0 {
			actual[id] = decimal.NewFromInt(int64(900 + 2*i))
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		budgets.BuildReport("2024-03", budgets.CategoryExpense, refs, planned, actual)
	}
}
