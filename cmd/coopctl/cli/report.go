package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coopledger/coopledger/internal/budgets"
	"github.com/coopledger/coopledger/internal/shared"
	"github.com/coopledger/coopledger/internal/transactions"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Period reports",
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Income, expense and net for a period",
	Example: `  # Current month
  coopctl report summary

  # March 2024 with the five months before it
  coopctl report summary --period 2024-03 --months 6`,
	RunE: runReportSummary,
}

var reportVarianceCmd = &cobra.Command{
	Use:   "variance",
	Short: "Budget against actual per account",
	RunE:  runReportVariance,
}

var reportNetCmd = &cobra.Command{
	Use:   "net",
	Short: "Net budget against net actual",
	RunE:  runReportNet,
}

var reportExportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Write a variance report to a CSV or XLSX file",
	Example: `  coopctl report export --period 2024-03 --category expense --format xlsx --out variance.xlsx`,
	RunE:    runReportExport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportSummaryCmd, reportVarianceCmd, reportNetCmd, reportExportCmd)
	reportCmd.PersistentFlags().String("period", "", "Reporting period (format: YYYY-MM, default: current month)")

	reportSummaryCmd.Flags().Int("months", 1, "Number of periods ending at --period")
	for _, c := range []*cobra.Command{reportVarianceCmd, reportExportCmd} {
		c.Flags().String("category", string(budgets.CategoryExpense), "Account category (revenue or expense)")
	}
	reportExportCmd.Flags().String("format", "csv", "Output format (csv or xlsx)")
	reportExportCmd.Flags().String("out", "", "Output file (default: variance-<category>-<period>.<format>)")
}

func periodFlag(cmd *cobra.Command) (shared.Period, error) {
	raw, _ := cmd.Flags().GetString("period")
	if raw == "" {
		return shared.PeriodOf(time.Now().UTC()), nil
	}
	return shared.ParsePeriod(raw)
}

func categoryFlag(cmd *cobra.Command) (budgets.Category, error) {
	raw, _ := cmd.Flags().GetString("category")
	category := budgets.Category(raw)
	if !category.Valid() {
		return "", shared.Validation("category", "must be revenue or expense")
	}
	return category, nil
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	period, err := periodFlag(cmd)
	if err != nil {
		return err
	}
	months, _ := cmd.Flags().GetInt("months")
	rt, err := openRuntime(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.Close()

	var summaries []transactions.Summary
	if months > 1 {
		summaries, err = rt.services.Transactions.Trend(cmd.Context(), period, months)
	} else {
		var summary transactions.Summary
		summary, err = rt.services.Transactions.PeriodSummary(cmd.Context(), period)
		summaries = []transactions.Summary{summary}
	}
	if err != nil {
		return err
	}
	return renderSummary(cmd.OutOrStdout(), summaries)
}

func runReportVariance(cmd *cobra.Command, args []string) error {
	period, err := periodFlag(cmd)
	if err != nil {
		return err
	}
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}
	rt, err := openRuntime(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer rt.Close()
	report, err := rt.services.Budgets.ComputeVariance(cmd.Context(), period, category)
	if err != nil {
		return err
	}
	return renderVariance(cmd.OutOrStdout(), report)
}

func runReportNet(cmd *cobra.Command, args []string) error {
	period, err := periodFlag(cmd)
	if err != nil {
		return err
	}
	rt, err := openRuntime(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer rt.Close()
	net, err := rt.services.Budgets.NetVariance(cmd.Context(), period)
	if err != nil {
		return err
	}
	return renderNet(cmd.OutOrStdout(), net)
}

func runReportExport(cmd *cobra.Command, args []string) error {
	period, err := periodFlag(cmd)
	if err != nil {
		return err
	}
	category, err := categoryFlag(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	var write func(io.Writer, budgets.Report) error
	switch format {
	case "csv":
		write = budgets.WriteVarianceCSV
	case "xlsx":
		write = budgets.WriteVarianceXLSX
	default:
		return shared.Validation("format", "must be csv or xlsx")
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = fmt.Sprintf("variance-%s-%s.%s", category, period, format)
	}

	rt, err := openRuntime(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer rt.Close()
	report, err := rt.services.Budgets.ComputeVariance(cmd.Context(), period, category)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := write(f, report); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d lines)\n", out, len(report.Lines))
	return err
}
