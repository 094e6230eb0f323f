package budgets

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"mime"

	"github.com/xuri/excelize/v2"
)

func init() {
	ensureMimeType(".csv", "text/csv; charset=utf-8")
	ensureMimeType(".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("budgets: failed to register MIME type for %s: %v", ext, err)
	}
}

var reportHeaders = []string{"Code", "Account", "Budget", "Actual", "Variance", "Variance %"}

func reportRows(report Report) [][]string {
	rows := make([][]string, 0, len(report.Lines)+1)
	for _, line := range report.Lines {
		rows = append(rows, figureRow(line.Account.Code, line.Account.Name, line.Figures))
	}
	return append(rows, figureRow("", "Total", report.Totals))
}

func figureRow(code, name string, f Figures) []string {
	return []string{
		code,
		name,
		f.Budget.StringFixed(2),
		f.Actual.StringFixed(2),
		f.Variance.StringFixed(2),
		f.VariancePercent.StringFixed(2),
	}
}

// WriteVarianceCSV serialises a variance report as CSV.
func WriteVarianceCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Period", report.Period, "Category", string(report.Category)}); err != nil {
		return err
	}
	if err := writer.Write(reportHeaders); err != nil {
		return err
	}
	for _, row := range reportRows(report) {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteVarianceXLSX renders a variance report as a single sheet workbook.
func WriteVarianceXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Variance " + report.Period
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("budgets: name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &[]any{"Period", report.Period, "Category", string(report.Category)}); err != nil {
		return err
	}
	header := make([]any, len(reportHeaders))
	for i, h := range reportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A3", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(sheet, 3, 3, bold)
	}

	lines := append(append([]Line(nil), report.Lines...), Line{Account: AccountRef{Name: "Total"}, Figures: report.Totals})
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return err
		}
		row := []any{
			line.Account.Code,
			line.Account.Name,
			line.Budget.InexactFloat64(),
			line.Actual.InexactFloat64(),
			line.Variance.InexactFloat64(),
			line.VariancePercent.InexactFloat64(),
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "F", 16); err != nil {
		return err
	}
	return f.Write(w)
}
