package pipeline

import (
	"fmt"
	"io"
	"strings"

	"posimport/internal"
	"posimport/internal/util"
)

// InspectReport is a dry run of one file: nothing is written to storage.
type InspectReport struct {
	Profile string
	Scan    FileScan
	Sales   []internal.SalesRecord
	Items   []internal.ItemSalesRecord
}

func Inspect(path string, p Profile, sample int) (InspectReport, error) {
	report := InspectReport{Profile: p.Name}
	switch p.Kind {
	case internal.KindSales:
		recs, scan, err := ParseSalesFile(path, p)
		if err != nil {
			return report, err
		}
		report.Scan = scan
		report.Sales = recs[:min(sample, len(recs))]
	case internal.KindItemSales:
		recs, scan, err := ParseItemFile(path, p)
		if err != nil {
			return report, err
		}
		report.Scan = scan
		report.Items = recs[:min(sample, len(recs))]
	default:
		scan, err := ScanFile(path, p)
		if err != nil {
			return report, err
		}
		report.Scan = scan
	}
	return report, nil
}

func (r InspectReport) Print(w io.Writer) {
	s := r.Scan
	fmt.Fprintf(w, "file:     %s (%s)\n", s.File, s.Format)
	fmt.Fprintf(w, "profile:  %s\n", r.Profile)
	fmt.Fprintf(w, "header:   row %d: %s\n", s.HeaderRow, strings.Join(s.Header, " | "))
	fmt.Fprintln(w, "columns:")
	for _, f := range s.Columns.Fields() {
		idx := s.Columns[f]
		fmt.Fprintf(w, "  %-18s -> %d %q\n", f, idx, pickCell(s.Header, idx))
	}
	fmt.Fprintf(w, "rows:     %d data, %d admitted\n", s.DataRows, s.Admitted)
	for reason, n := range s.Rejected {
		fmt.Fprintf(w, "  rejected %-16s %d\n", reason, n)
	}
	for _, r := range s.Samples {
		fmt.Fprintf(w, "  rejected row %d (%s): %s\n", r.Row, r.Reason, strings.Join(r.Cells, ","))
	}

	for _, rec := range r.Sales {
		fmt.Fprintf(w, "  row %d: %s | %s | %s | %s | %s\n", rec.SourceRow, rec.OutletName, rec.BillNo,
			formatDate(rec), rec.NetAmount.StringFixed(2), util.Deref(rec.TransactionType))
	}
	for _, rec := range r.Items {
		fmt.Fprintf(w, "  row %d: %s | %s | %s %s | qty %d | %s | %s\n", rec.SourceRow, rec.OutletName, util.Deref(rec.BillNo),
			rec.ItemCode, rec.ItemName, rec.Quantity, rec.NetAmount.StringFixed(2), util.Deref(rec.TransactionType))
	}
}

func formatDate(rec internal.SalesRecord) string {
	if rec.BillDate == nil {
		return "-"
	}
	return rec.BillDate.Format("2006-01-02")
}
