package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocateHeader(t *testing.T) {
	cases := []struct {
		name     string
		rows     [][]string
		keywords []string
		want     int
	}{
		{
			name:     "first row",
			rows:     [][]string{{"Outlet Name", "Bill No"}, {"A", "1"}},
			keywords: []string{"outlet", "name"},
			want:     0,
		},
		{
			name:     "after title rows",
			rows:     [][]string{{"Sales Report"}, {"From 01-05-2024"}, {}, {"Outlet Name", "Bill No"}},
			keywords: []string{"outlet", "name"},
			want:     3,
		},
		{
			name:     "keywords in different cells",
			rows:     [][]string{{"x"}, {"OUTLET", "NAME"}},
			keywords: []string{"outlet", "name"},
			want:     1,
		},
		{
			name:     "lowest matching index wins",
			rows:     [][]string{{"Net Sale Qty", "Outlet"}, {"Net Sale Qty", "Outlet"}},
			keywords: []string{"net sale qty"},
			want:     0,
		},
		{
			name:     "not found",
			rows:     [][]string{{"Bill No"}, {"B1"}},
			keywords: []string{"outlet", "name"},
			want:     -1,
		},
		{
			name:     "empty",
			rows:     nil,
			keywords: []string{"outlet"},
			want:     -1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LocateHeader(tc.rows, tc.keywords))
		})
	}
}

func TestMapColumnsSalesReport(t *testing.T) {
	header := []string{"Outlet Name", "Bill No", "Bill Dt.", "Item Net Amt"}
	cols := MapColumns(header, SalesReport.Rules)

	assert.Equal(t, ColumnMap{
		FieldOutletName: 0,
		FieldBillNo:     1,
		FieldBillDate:   2,
		FieldNetAmount:  3,
	}, cols)
}

func TestMapColumnsAlternativePriority(t *testing.T) {
	header := []string{"Outlet Name", "Bill No", "Amount", "Bill Amount"}
	cols := MapColumns(header, SalesReport.Rules)

	// "bill amount" outranks the generic "amount" even though it sits further right.
	assert.Equal(t, 3, cols[FieldNetAmount])
}

func TestMapColumnsClaimedColumnsAreSkipped(t *testing.T) {
	header := []string{"Outlet Name", "Ref Bill No", "Bill No", "Item Code", "Item Name", "Qty"}
	cols := MapColumns(header, ItemWorkbook.Rules)

	assert.Equal(t, 1, cols[FieldRefBillNo])
	assert.Equal(t, 2, cols[FieldBillNo])
	assert.Equal(t, 5, cols[FieldQuantity])
}

func TestMapColumnsItemDetail(t *testing.T) {
	header := []string{"Outlet Name", "Bill No", "Bill Dt.", "Item Code", "Item Name", "Item Alias", "Sold Qty", "Item Net Amt", "SalesMan Name"}
	cols := MapColumns(header, ItemDetail.Rules)

	assert.Equal(t, ColumnMap{
		FieldOutletName: 0,
		FieldBillNo:     1,
		FieldBillDate:   2,
		FieldItemCode:   3,
		FieldItemName:   4,
		FieldQuantity:   6,
		FieldNetAmount:  7,
		FieldSalesman:   8,
	}, cols)
	assert.Empty(t, ItemDetail.MissingIdentity(cols))
}

func TestMapColumnsMarginSummary(t *testing.T) {
	header := []string{"Net Sale Qty", "OUTLET NAME", "Sale Qty", "Sales Amount", "Selling Price", "Bill Date", "Item Alias", "Item Code", "Item Name"}
	cols := MapColumns(header, MarginSummary.Rules)

	assert.Equal(t, 1, cols[FieldOutletName])
	assert.Equal(t, 0, cols[FieldQuantity])
	assert.Equal(t, 3, cols[FieldNetAmount])
	assert.Equal(t, 5, cols[FieldBillDate])
	assert.False(t, cols.Has(FieldBillNo))
	assert.Empty(t, MarginSummary.MissingIdentity(cols))
	assert.Equal(t, []string{"bill_no"}, ItemDetail.MissingIdentity(cols))
}

func TestConditionExcept(t *testing.T) {
	cond := Has("name").Except("store")
	assert.True(t, cond.Match("Location Name"))
	assert.False(t, cond.Match("Store Name"))
	assert.False(t, Condition{}.Match("anything"))

	cols := MapColumns([]string{"Store Name", "Store ID", "Name"}, StoreMapping.Rules)
	assert.Equal(t, 1, cols[FieldStoreNumber])
	assert.Equal(t, 2, cols[FieldOutletName])
}

func TestProfileAccepts(t *testing.T) {
	assert.True(t, SalesReport.Accepts("Report_2024_05.csv", "Report_"))
	assert.False(t, SalesReport.Accepts("Summary.csv", "Report_"))
	assert.False(t, SalesReport.Accepts("Report_2024_05.xlsx", "Report_"))
	assert.True(t, ItemWorkbook.Accepts("returns.XLS", ""))
}
