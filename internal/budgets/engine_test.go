package budgets

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCompareExpenseUnderSpend(t *testing.T) {
	f := Compare(CategoryExpense, d("1000.00"), d("800.00"))
	require.Equal(t, "200.00", f.Variance.StringFixed(2))
	require.Equal(t, "20.00", f.VariancePercent.StringFixed(2))
}

func TestCompareRevenueOverPlan(t *testing.T) {
	f := Compare(CategoryRevenue, d("500.00"), d("650.00"))
	require.Equal(t, "150.00", f.Variance.StringFixed(2))
	require.Equal(t, "30.00", f.VariancePercent.StringFixed(2))
}

func TestCompareZeroBudget(t *testing.T) {
	for _, category := range []Category{CategoryRevenue, CategoryExpense} {
		f := Compare(category, decimal.Zero, d("123.45"))
		require.True(t, f.VariancePercent.IsZero(), category)
	}
	f := Compare(CategoryExpense, decimal.Decimal{}, decimal.Decimal{})
	require.True(t, f.Variance.IsZero())
	require.True(t, f.VariancePercent.IsZero())
}

func TestComparePercentRounding(t *testing.T) {
	f := Compare(CategoryExpense, d("300.00"), d("200.00"))
	require.Equal(t, "33.33", f.VariancePercent.StringFixed(2))

	f = Compare(CategoryExpense, d("300.00"), d("400.00"))
	require.Equal(t, "-100.00", f.Variance.StringFixed(2))
	require.Equal(t, "-33.33", f.VariancePercent.StringFixed(2))
}

func TestBuildReport(t *testing.T) {
	accounts := []AccountRef{
		{ID: 3, Code: "VET", Name: "Veterinary", Category: CategoryExpense},
		{ID: 1, Code: "FEED", Name: "Feed", Category: CategoryExpense},
		{ID: 2, Code: "LABOR", Name: "Labor", Category: CategoryExpense},
		{ID: 4, Code: "UTIL", Name: "Utilities", Category: CategoryExpense},
	}
	budgets := map[int64]decimal.Decimal{1: d("1000.00"), 2: d("500.00")}
	actuals := map[int64]decimal.Decimal{1: d("800.00"), 3: d("60.00")}

	report := BuildReport("2024-03", CategoryExpense, accounts, budgets, actuals)
	require.Len(t, report.Lines, 3)
	require.Equal(t, "FEED", report.Lines[0].Account.Code)
	require.Equal(t, "LABOR", report.Lines[1].Account.Code)
	require.Equal(t, "VET", report.Lines[2].Account.Code)

	require.Equal(t, "500.00", report.Lines[1].Variance.StringFixed(2))
	require.Equal(t, "100.00", report.Lines[1].VariancePercent.StringFixed(2))
	require.Equal(t, "-60.00", report.Lines[2].Variance.StringFixed(2))
	require.True(t, report.Lines[2].VariancePercent.IsZero())

	require.Equal(t, "1500.00", report.Totals.Budget.StringFixed(2))
	require.Equal(t, "860.00", report.Totals.Actual.StringFixed(2))
	require.Equal(t, "640.00", report.Totals.Variance.StringFixed(2))
	require.Equal(t, "42.67", report.Totals.VariancePercent.StringFixed(2))
}

func TestComputeNet(t *testing.T) {
	net := ComputeNet("2024-03", d("500.00"), d("1000.00"), d("650.00"), d("800.00"))
	require.Equal(t, "-500.00", net.BudgetNet.StringFixed(2))
	require.Equal(t, "-150.00", net.ActualNet.StringFixed(2))
	require.Equal(t, "350.00", net.NetVariance.StringFixed(2))
	// the planned net is a loss; the improvement stays positive
	require.Equal(t, "70.00", net.NetVariancePercent.StringFixed(2))

	net = ComputeNet("2024-03", d("100.00"), d("100.00"), d("10.00"), decimal.Zero)
	require.True(t, net.BudgetNet.IsZero())
	require.True(t, net.NetVariancePercent.IsZero())
}
