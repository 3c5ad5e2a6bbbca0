package util

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DateLayouts are tried in order; the first layout that parses wins.
// Day and month accept one or two digits.
var DateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2/1/2006",
}

var numericStripper = strings.NewReplacer(",", "", `"`, "")

func cleanNumeric(raw string) string {
	return strings.TrimSpace(numericStripper.Replace(raw))
}

// ParseAmount never fails: empty, "-" and unparseable input all yield zero.
func ParseAmount(raw string) decimal.Decimal {
	s := cleanNumeric(raw)
	if s == "" || s == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseInt parses through float64 and truncates toward zero.
func ParseInt(raw string) int64 {
	s := cleanNumeric(raw)
	if s == "" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return &t
		}
	}
	return nil
}

// Serial dates outside this window are treated as ordinary numbers.
const (
	minExcelSerial = 20000 // 1954-10-03
	maxExcelSerial = 80000 // 2119-01-10
)

// ParseExcelSerialDate converts a spreadsheet serial day number to a date.
func ParseExcelSerialDate(raw string) *time.Time {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < minExcelSerial || f > maxExcelSerial {
		return nil
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return nil
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}

// IsNumeric reports whether the whole cell is a number, thousands separators allowed.
func IsNumeric(raw string) bool {
	s := cleanNumeric(raw)
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
