package budgets

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Compare applies the direction convention of the category: revenue above
// plan and expense below plan are both positive variances. The percentage is
// relative to the budget and zero when nothing was budgeted.
func Compare(category Category, budget, actual decimal.Decimal) Figures {
	var variance decimal.Decimal
	if category == CategoryRevenue {
		variance = actual.Sub(budget)
	} else {
		variance = budget.Sub(actual)
	}
	return Figures{
		Budget:          budget.Round(2),
		Actual:          actual.Round(2),
		Variance:        variance.Round(2),
		VariancePercent: percentOf(variance, budget),
	}
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// BuildReport assembles report lines for every account that has either a
// budget or posted actuals in the period. Lines are ordered by account code.
func BuildReport(period string, category Category, accounts []AccountRef, budgets map[int64]decimal.Decimal, actuals map[int64]decimal.Decimal) Report {
	report := Report{Period: period, Category: category, Lines: []Line{}}
	totalBudget := decimal.Zero
	totalActual := decimal.Zero
	for _, acc := range accounts {
		budget, hasBudget := budgets[acc.ID]
		actual, hasActual := actuals[acc.ID]
		if !hasBudget && !hasActual {
			continue
		}
		report.Lines = append(report.Lines, Line{Account: acc, Figures: Compare(category, budget, actual)})
		totalBudget = totalBudget.Add(budget)
		totalActual = totalActual.Add(actual)
	}
	sort.SliceStable(report.Lines, func(i, j int) bool {
		return report.Lines[i].Account.Code < report.Lines[j].Account.Code
	})
	report.Totals = Compare(category, totalBudget, totalActual)
	return report
}

// ComputeNet compares planned net (budgeted revenue minus budgeted expense)
// with the actual net of the period. The percentage divides by the absolute
// planned net so a planned loss keeps the sign of the improvement.
func ComputeNet(period string, budgetRevenue, budgetExpense, actualIncome, actualExpense decimal.Decimal) NetReport {
	budgetNet := budgetRevenue.Sub(budgetExpense)
	actualNet := actualIncome.Sub(actualExpense)
	netVariance := actualNet.Sub(budgetNet)
	return NetReport{
		Period:             period,
		BudgetRevenue:      budgetRevenue.Round(2),
		BudgetExpense:      budgetExpense.Round(2),
		BudgetNet:          budgetNet.Round(2),
		ActualIncome:       actualIncome.Round(2),
		ActualExpense:      actualExpense.Round(2),
		ActualNet:          actualNet.Round(2),
		NetVariance:        netVariance.Round(2),
		NetVariancePercent: percentOf(netVariance, budgetNet.Abs()),
	}
}
