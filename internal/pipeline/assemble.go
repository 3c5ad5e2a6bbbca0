package pipeline

import (
	"strings"
	"time"

	"posimport/internal"
	"posimport/internal/util"
)

// rowView reads mapped fields out of one admitted row.
type rowView struct {
	cells       []string
	cols        ColumnMap
	spreadsheet bool
}

func (v rowView) text(field Field) string {
	s := pickCell(v.cells, v.cols.Index(field))
	if util.IsBlank(s) {
		return ""
	}
	return s
}

func (v rowView) optional(field Field) *string {
	return util.OptionalString(v.text(field))
}

func (v rowView) date(field Field) *time.Time {
	raw := v.text(field)
	if raw == "" {
		return nil
	}
	if d := util.ParseDate(raw); d != nil {
		return d
	}
	// "01/05/2024 10:32" style stamps keep only the day.
	if head, _, ok := strings.Cut(raw, " "); ok {
		if d := util.ParseDate(head); d != nil {
			return d
		}
	}
	if v.spreadsheet {
		return util.ParseExcelSerialDate(raw)
	}
	return nil
}

// Assembler builds canonical records for one source file.
type Assembler struct {
	Profile     Profile
	Columns     ColumnMap
	SourceFile  string
	Spreadsheet bool
}

func (a Assembler) view(row []string) rowView {
	return rowView{cells: row, cols: a.Columns, spreadsheet: a.Spreadsheet}
}

// billNo falls back to the manual bill and then the return number.
func (a Assembler) billNo(v rowView) string {
	for _, f := range []Field{FieldBillNo, FieldManualBillNo, FieldReturnNo} {
		if s := v.text(f); s != "" {
			return s
		}
	}
	return ""
}

func (a Assembler) transactionType(v rowView) *string {
	if a.Columns.Has(FieldTransactionType) {
		return v.optional(FieldTransactionType)
	}
	if strings.Contains(strings.ToLower(a.SourceFile), "return") ||
		a.Columns.Has(FieldRefBillNo) || a.Columns.Has(FieldReturnNo) {
		return util.StringPtr(internal.TransactionReturn)
	}
	if a.Profile.DefaultTransactionType != "" {
		return util.StringPtr(a.Profile.DefaultTransactionType)
	}
	return nil
}

// Sales returns false when the row lacks outlet or bill identity.
func (a Assembler) Sales(row []string, rowNum int) (internal.SalesRecord, bool) {
	v := a.view(row)
	rec := internal.SalesRecord{
		OutletName:      v.text(FieldOutletName),
		BillNo:          a.billNo(v),
		BillDate:        v.date(FieldBillDate),
		NetAmount:       util.ParseAmount(v.text(FieldNetAmount)),
		TransactionType: a.transactionType(v),
		Salesman:        v.optional(FieldSalesman),
		SourceFile:      a.SourceFile,
		SourceRow:       rowNum,
	}
	if rec.OutletName == "" || rec.BillNo == "" {
		return internal.SalesRecord{}, false
	}
	return rec, true
}

// Item returns false when the row lacks outlet or item identity.
func (a Assembler) Item(row []string, rowNum int) (internal.ItemSalesRecord, bool) {
	v := a.view(row)
	rec := internal.ItemSalesRecord{
		OutletName:      v.text(FieldOutletName),
		TransactionType: a.transactionType(v),
		BillNo:          util.OptionalString(a.billNo(v)),
		BillDate:        v.date(FieldBillDate),
		ItemCode:        v.text(FieldItemCode),
		ItemName:        v.text(FieldItemName),
		Quantity:        util.ParseInt(v.text(FieldQuantity)),
		NetAmount:       util.ParseAmount(v.text(FieldNetAmount)),
		Salesman:        v.optional(FieldSalesman),
		RefBillNo:       v.optional(FieldRefBillNo),
		SourceFile:      a.SourceFile,
		SourceRow:       rowNum,
	}
	if rec.OutletName == "" || (rec.ItemCode == "" && rec.ItemName == "") {
		return internal.ItemSalesRecord{}, false
	}
	return rec, true
}
