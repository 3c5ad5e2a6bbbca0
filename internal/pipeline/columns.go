package pipeline

import (
	"sort"
	"strings"
)

type Field string

const (
	FieldOutletName      Field = "outlet_name"
	FieldBillNo          Field = "bill_no"
	FieldManualBillNo    Field = "manual_bill_no"
	FieldReturnNo        Field = "return_no"
	FieldRefBillNo       Field = "ref_bill_no"
	FieldBillDate        Field = "bill_date"
	FieldNetAmount       Field = "net_amount"
	FieldTransactionType Field = "transaction_type"
	FieldSalesman        Field = "salesman"
	FieldItemCode        Field = "item_code"
	FieldItemName        Field = "item_name"
	FieldQuantity        Field = "quantity"
	FieldStoreNumber     Field = "store_number"
)

// Condition matches a header cell that contains every All substring and none of the None substrings.
type Condition struct {
	All  []string
	None []string
}

func Has(parts ...string) Condition {
	return Condition{All: parts}
}

func (c Condition) Except(parts ...string) Condition {
	c.None = append(append([]string{}, c.None...), parts...)
	return c
}

func (c Condition) Match(header string) bool {
	h := strings.ToLower(header)
	for _, part := range c.All {
		if !strings.Contains(h, strings.ToLower(part)) {
			return false
		}
	}
	for _, part := range c.None {
		if strings.Contains(h, strings.ToLower(part)) {
			return false
		}
	}
	return len(c.All) > 0
}

// FieldRule lists the alternatives for one field, highest priority first.
type FieldRule struct {
	Field        Field
	Alternatives []Condition
}

func Rule(field Field, alternatives ...Condition) FieldRule {
	return FieldRule{Field: field, Alternatives: alternatives}
}

type ColumnMap map[Field]int

func (m ColumnMap) Has(field Field) bool {
	_, ok := m[field]
	return ok
}

// Index returns -1 for unmapped fields.
func (m ColumnMap) Index(field Field) int {
	if idx, ok := m[field]; ok {
		return idx
	}
	return -1
}

func (m ColumnMap) Fields() []Field {
	out := make([]Field, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return m[out[i]] < m[out[j]] })
	return out
}

// LocateHeader returns the index of the first row whose text contains every keyword, or -1.
func LocateHeader(rows [][]string, keywords []string) int {
	for i, row := range rows {
		if rowContainsAll(row, keywords) {
			return i
		}
	}
	return -1
}

func rowContainsAll(row []string, keywords []string) bool {
	if len(row) == 0 || len(keywords) == 0 {
		return false
	}
	line := strings.ToLower(strings.Join(row, ","))
	for _, kw := range keywords {
		if !strings.Contains(line, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// MapColumns resolves fields in rule order. For each field the alternatives are tried
// in priority order and columns are scanned left to right; a column claimed by an
// earlier field is never handed to a later one.
func MapColumns(header []string, rules []FieldRule) ColumnMap {
	out := ColumnMap{}
	claimed := make(map[int]bool, len(header))

	for _, rule := range rules {
		if out.Has(rule.Field) {
			continue
		}
	alternatives:
		for _, cond := range rule.Alternatives {
			for idx, col := range header {
				if claimed[idx] || !cond.Match(col) {
					continue
				}
				out[rule.Field] = idx
				claimed[idx] = true
				break alternatives
			}
		}
	}
	return out
}
