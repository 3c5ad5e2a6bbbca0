package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"posimport/internal/util"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatBIFF Format = "biff"
)

// Table is a fully loaded tabular source. Rows keep their physical order.
type Table struct {
	Name   string
	Format Format
	Rows   [][]string
}

// Spreadsheet reports whether numeric cells may hold serial dates.
func (t Table) Spreadsheet() bool {
	return t.Format == FormatXLSX
}

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

func ReadFile(path string) (Table, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Table{}, err
	}
	return ReadBytes(filepath.Base(path), blob)
}

// ReadBytes picks a parser from the content; extensions on POS exports are unreliable.
func ReadBytes(name string, blob []byte) (Table, error) {
	format := SniffFormat(blob)
	t := Table{Name: name, Format: format}

	var err error
	switch format {
	case FormatXLSX:
		t.Rows, err = readXLSX(blob)
	case FormatHTML:
		t.Rows, err = readHTMLTable(blob)
	case FormatBIFF:
		return t, fmt.Errorf("legacy binary workbook: %w", ErrUnsupportedFormat)
	default:
		t.Rows, err = readCSV(bytes.NewReader(blob))
	}
	if err != nil {
		return t, err
	}
	return t, nil
}

func SniffFormat(blob []byte) Format {
	if bytes.HasPrefix(blob, zipMagic) {
		return FormatXLSX
	}
	if bytes.HasPrefix(blob, ole2Magic) {
		return FormatBIFF
	}
	head := blob
	if len(head) > 2048 {
		head = head[:2048]
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	if bytes.HasPrefix(lower, []byte("<")) && (bytes.Contains(lower, []byte("<table")) || bytes.Contains(lower, []byte("<html"))) {
		return FormatHTML
	}
	return FormatCSV
}

func readCSV(r io.Reader) ([][]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	for i := range rows {
		rows[i] = normalizeCells(rows[i])
	}
	return rows, nil
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", ErrUnsupportedFormat)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	for i := range rows {
		rows[i] = normalizeCells(rows[i])
	}
	return rows, nil
}

func readHTMLTable(content []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rows := [][]string{}
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := []string{}
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cell.Text())
		})
		rows = append(rows, normalizeCells(cells))
	})
	if len(rows) == 0 {
		return nil, fmt.Errorf("no table rows: %w", ErrUnsupportedFormat)
	}
	return rows, nil
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		c = strings.ReplaceAll(c, "\uFFFD", "")
		out = append(out, util.NormalizeSpaces(c))
	}
	return out
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}
