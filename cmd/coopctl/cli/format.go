package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/coopledger/coopledger/internal/budgets"
	"github.com/coopledger/coopledger/internal/transactions"
)

var printer = message.NewPrinter(language.English)

// formatAmount renders a money value with grouped thousands and two decimals.
func formatAmount(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	return sign + printer.Sprintf("%d", whole.IntPart()) + fmt.Sprintf(".%02d", cents)
}

func formatPercent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

func renderSummary(w io.Writer, summaries []transactions.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Period\tIncome\tExpense\tNet\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", s.Period, formatAmount(s.Income), formatAmount(s.Expense), formatAmount(s.Net))
	}
	return tw.Flush()
}

func renderVariance(w io.Writer, report budgets.Report) error {
	fmt.Fprintf(w, "%s variance %s\n", report.Category, report.Period)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Code\tAccount\tBudget\tActual\tVariance\tVariance %")
	for _, line := range report.Lines {
		writeFigures(tw, line.Account.Code, line.Account.Name, line.Figures)
	}
	writeFigures(tw, "", "Total", report.Totals)
	return tw.Flush()
}

func writeFigures(w io.Writer, code, name string, f budgets.Figures) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", code, name,
		formatAmount(f.Budget), formatAmount(f.Actual), formatAmount(f.Variance), formatPercent(f.VariancePercent))
}

func renderNet(w io.Writer, net budgets.NetReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Net variance %s\t\t\n", net.Period)
	fmt.Fprintln(tw, "\tBudget\tActual")
	fmt.Fprintf(tw, "Revenue\t%s\t%s\n", formatAmount(net.BudgetRevenue), formatAmount(net.ActualIncome))
	fmt.Fprintf(tw, "Expense\t%s\t%s\n", formatAmount(net.BudgetExpense), formatAmount(net.ActualExpense))
	fmt.Fprintf(tw, "Net\t%s\t%s\n", formatAmount(net.BudgetNet), formatAmount(net.ActualNet))
	fmt.Fprintf(tw, "Variance\t%s\t%s\n", formatAmount(net.NetVariance), formatPercent(net.NetVariancePercent))
	return tw.Flush()
}
