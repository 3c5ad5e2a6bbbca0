package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"posimport/internal"
)

// FileScan is what the header locator, column mapper and classifier made of one file.
type FileScan struct {
	File      string
	Format    Format
	HeaderRow int
	Header    []string
	Columns   ColumnMap
	DataRows  int
	Admitted  int
	Rejected  map[RejectReason]int
	// Samples keeps the first rejected rows for diagnostics.
	Samples []RejectedRow
}

type RejectedRow struct {
	Row    int
	Reason RejectReason
	Cells  []string
}

const maxRejectSamples = 5

func (f FileScan) RejectedTotal() int {
	n := 0
	for _, c := range f.Rejected {
		n += c
	}
	return n
}

type preparedSource struct {
	table     Table
	headerIdx int
	cols      ColumnMap
}

func prepare(path string, p Profile) (preparedSource, error) {
	name := filepath.Base(path)
	table, err := ReadFile(path)
	if err != nil {
		return preparedSource{}, &SourceError{File: name, Err: err}
	}
	return prepareTable(table, p)
}

func prepareTable(table Table, p Profile) (preparedSource, error) {
	headerIdx := 0
	if len(p.HeaderKeywords) > 0 {
		headerIdx = LocateHeader(table.Rows, p.HeaderKeywords)
	}
	if headerIdx < 0 || headerIdx >= len(table.Rows) {
		return preparedSource{}, &SourceError{
			File: table.Name,
			Err:  fmt.Errorf("%w (keywords %q)", ErrHeaderNotFound, p.HeaderKeywords),
		}
	}

	cols := MapColumns(table.Rows[headerIdx], p.Rules)
	if missing := p.MissingIdentity(cols); len(missing) > 0 {
		return preparedSource{}, &SourceError{
			File: table.Name,
			Err:  fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", ")),
		}
	}
	return preparedSource{table: table, headerIdx: headerIdx, cols: cols}, nil
}

// each walks the rows after the header. rowNum is the 1-based physical row.
func (s preparedSource) each(p Profile, scan *FileScan, fn func(row []string, rowNum int) bool) {
	cls := NewClassifier(p, s.cols)
	for i := s.headerIdx + 1; i < len(s.table.Rows); i++ {
		row := s.rejoinAmount(s.table.Rows[i])
		scan.DataRows++
		reason := cls.Classify(row)
		if reason == Admitted && !fn(row, i+1) {
			reason = RejectBlankID
		}
		if reason != Admitted {
			scan.reject(i+1, reason, row)
			continue
		}
		scan.Admitted++
	}
}

var reGroupedAmount = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)

// rejoinAmount glues an unquoted amount like 1,250.75 that the CSV reader split
// into trailing cells. Only applies when the amount is the last header column.
func (s preparedSource) rejoinAmount(row []string) []string {
	width := len(s.table.Rows[s.headerIdx])
	idx := s.cols.Index(FieldNetAmount)
	if s.table.Format != FormatCSV || idx < 0 || idx != width-1 || len(row) <= width {
		return row
	}
	amount := strings.Join(row[idx:], ",")
	if !reGroupedAmount.MatchString(amount) {
		return row
	}
	out := make([]string, 0, width)
	out = append(out, row[:idx]...)
	return append(out, amount)
}

func (f *FileScan) reject(rowNum int, reason RejectReason, row []string) {
	f.Rejected[reason]++
	if len(f.Samples) < maxRejectSamples {
		f.Samples = append(f.Samples, RejectedRow{Row: rowNum, Reason: reason, Cells: row})
	}
}

func (s preparedSource) scan() FileScan {
	return FileScan{
		File:      s.table.Name,
		Format:    s.table.Format,
		HeaderRow: s.headerIdx + 1,
		Header:    s.table.Rows[s.headerIdx],
		Columns:   s.cols,
		Rejected:  map[RejectReason]int{},
	}
}

func (s preparedSource) assembler(p Profile) Assembler {
	return Assembler{Profile: p, Columns: s.cols, SourceFile: s.table.Name, Spreadsheet: s.table.Spreadsheet()}
}

func ParseSalesFile(path string, p Profile) ([]internal.SalesRecord, FileScan, error) {
	src, err := prepare(path, p)
	if err != nil {
		return nil, FileScan{File: filepath.Base(path)}, err
	}
	return parseSales(src, p)
}

func parseSales(src preparedSource, p Profile) ([]internal.SalesRecord, FileScan, error) {
	scan := src.scan()
	asm := src.assembler(p)
	out := []internal.SalesRecord{}
	src.each(p, &scan, func(row []string, rowNum int) bool {
		rec, ok := asm.Sales(row, rowNum)
		if ok {
			out = append(out, rec)
		}
		return ok
	})
	return out, scan, nil
}

func ParseItemFile(path string, p Profile) ([]internal.ItemSalesRecord, FileScan, error) {
	src, err := prepare(path, p)
	if err != nil {
		return nil, FileScan{File: filepath.Base(path)}, err
	}
	return parseItems(src, p)
}

func parseItems(src preparedSource, p Profile) ([]internal.ItemSalesRecord, FileScan, error) {
	scan := src.scan()
	asm := src.assembler(p)
	out := []internal.ItemSalesRecord{}
	src.each(p, &scan, func(row []string, rowNum int) bool {
		rec, ok := asm.Item(row, rowNum)
		if ok {
			out = append(out, rec)
		}
		return ok
	})
	return out, scan, nil
}

// ScanFile runs the full admission logic without keeping records.
func ScanFile(path string, p Profile) (FileScan, error) {
	switch p.Kind {
	case internal.KindSales:
		_, scan, err := ParseSalesFile(path, p)
		return scan, err
	case internal.KindItemSales:
		_, scan, err := ParseItemFile(path, p)
		return scan, err
	default:
		src, err := prepare(path, p)
		if err != nil {
			return FileScan{File: filepath.Base(path)}, err
		}
		scan := src.scan()
		src.each(p, &scan, func([]string, int) bool { return true })
		return scan, nil
	}
}

// ListSourceFiles returns the profile's files in dir, sorted by name.
// A missing directory yields no files.
func ListSourceFiles(dir, prefix string, p Profile) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() || !p.Accepts(e.Name(), prefix) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
