package verify

import (
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const filesSheet = "Files"

// ExportXLSX writes the per-file comparison and the table summaries to a workbook.
func ExportXLSX(report Report, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), filesSheet); err != nil {
		return err
	}
	writeRow(f, filesSheet, 1, []any{"table", "source_file", "profile", "expected", "loaded", "diff", "rejected", "error"})
	r := 2
	for _, t := range report.Tables {
		for _, fc := range t.Files {
			var diff any = fc.Diff()
			note := fc.Error
			if fc.Shared {
				diff, note = "", "name shared with another directory"
			}
			writeRow(f, filesSheet, r, []any{
				t.Table, fc.File, fc.Profile, fc.Expected, fc.Actual, diff, fc.Rejected, note,
			})
			r++
		}
		for _, o := range t.Orphans {
			writeRow(f, filesSheet, r, []any{t.Table, o.Key, "", "", o.Rows, "", "", "no source file"})
			r++
		}
	}

	if _, err := f.NewSheet("Tables"); err != nil {
		return err
	}
	writeRow(f, "Tables", 1, []any{"table", "expected", "loaded", "amount", "first_bill_date", "last_bill_date", "ok"})
	for i, t := range report.Tables {
		writeRow(f, "Tables", i+2, []any{
			t.Table, t.Expected, t.Stats.Rows, t.Stats.Amount.InexactFloat64(),
			dateCell(t.Stats.FirstBillDate), dateCell(t.Stats.LastBillDate), t.OK,
		})
	}

	if _, err := f.NewSheet("Months"); err != nil {
		return err
	}
	writeRow(f, "Months", 1, []any{"table", "month", "rows", "amount"})
	r = 2
	for _, t := range report.Tables {
		for _, b := range t.Stats.ByMonth {
			writeRow(f, "Months", r, []any{t.Table, b.Key, b.Rows, b.Amount.InexactFloat64()})
			r++
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func dateCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
