package pipeline

import (
	"path/filepath"
	"strings"

	"posimport/internal"
)

// Profile describes one family of POS exports: how to find its header, how to
// map its columns and which rows count as data.
type Profile struct {
	Name           string
	Kind           internal.RecordKind
	HeaderKeywords []string
	Rules          []FieldRule
	// Identity groups: every group needs at least one non-blank mapped column.
	Identity   [][]Field
	MinCells   int
	Extensions []string
	// DefaultTransactionType applies when the file carries no type column and no return hints.
	DefaultTransactionType string
}

var salesRules = []FieldRule{
	Rule(FieldOutletName, Has("outlet", "name")),
	Rule(FieldBillNo, Has("bill no"), Has("billno")),
	Rule(FieldBillDate, Has("bill dt"), Has("bill date")),
	Rule(FieldNetAmount, Has("bill amount"), Has("net", "amt"), Has("amount")),
	Rule(FieldTransactionType, Has("tran", "type")),
	Rule(FieldSalesman, Has("salesman")),
}

// Return linkage columns come before bill_no so "Ref Bill No" is never taken as the bill itself.
var itemRules = []FieldRule{
	Rule(FieldOutletName, Has("outlet", "name"), Has("outlet")),
	Rule(FieldManualBillNo, Has("manual", "bill")),
	Rule(FieldRefBillNo, Has("ref", "bill"), Has("ref", "no"), Has("sold", "bill")),
	Rule(FieldReturnNo, Has("ret", "no")),
	Rule(FieldBillNo, Has("bill no"), Has("billno"), Has("bill", "number")),
	Rule(FieldBillDate, Has("bill", "date"), Has("bill", "dt")),
	Rule(FieldItemCode, Has("item", "code")),
	Rule(FieldItemName, Has("item", "name")),
	Rule(FieldQuantity, Has("sold", "qty"), Has("sale", "qty"), Has("qty"), Has("quantity")),
	Rule(FieldNetAmount, Has("net", "amt"), Has("sales amount"), Has("net", "amount"), Has("amount")),
	Rule(FieldSalesman, Has("salesman"), Has("sales", "name")),
	Rule(FieldTransactionType, Has("tran", "type")),
}

var storeMappingRules = []FieldRule{
	Rule(FieldStoreNumber, Has("store", "number"), Has("store", "id")),
	Rule(FieldOutletName, Has("outlet"), Has("name").Except("store")),
}

var itemIdentity = []Field{FieldItemCode, FieldItemName}

var (
	SalesReport = Profile{
		Name:           "sales-report",
		Kind:           internal.KindSales,
		HeaderKeywords: []string{"outlet", "name"},
		Rules:          salesRules,
		Identity:       [][]Field{{FieldOutletName}, {FieldBillNo}},
		MinCells:       3,
		Extensions:     []string{".csv"},
	}

	ItemDetail = Profile{
		Name:           "item-detail",
		Kind:           internal.KindItemSales,
		HeaderKeywords: []string{"outlet name", "bill no"},
		Rules:          itemRules,
		Identity:       [][]Field{{FieldOutletName}, {FieldBillNo}, itemIdentity},
		MinCells:       5,
		Extensions:     []string{".csv"},
	}

	MarginSummary = Profile{
		Name:           "margin-summary",
		Kind:           internal.KindItemSales,
		HeaderKeywords: []string{"net sale qty"},
		Rules:          itemRules,
		Identity:       [][]Field{{FieldOutletName}, itemIdentity},
		MinCells:       5,
		Extensions:     []string{".csv"},
	}

	ItemWorkbook = Profile{
		Name:                   "item-workbook",
		Kind:                   internal.KindItemSales,
		HeaderKeywords:         []string{"outlet"},
		Rules:                  itemRules,
		Identity:               [][]Field{{FieldOutletName}, {FieldBillNo, FieldManualBillNo, FieldReturnNo}, itemIdentity},
		MinCells:               3,
		Extensions:             []string{".xls", ".xlsx"},
		DefaultTransactionType: internal.TransactionSales,
	}

	// StoreMapping is the reconciliation sheet; its header is always the first row.
	StoreMapping = Profile{
		Name:     "store-mapping",
		Rules:    storeMappingRules,
		Identity: [][]Field{{FieldOutletName}, {FieldStoreNumber}},
		MinCells: 1,
	}
)

var profiles = []Profile{SalesReport, ItemDetail, MarginSummary, ItemWorkbook, StoreMapping}

func ProfileByName(name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

func ProfileNames() []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Name)
	}
	return out
}

// Accepts reports whether a file name belongs to this profile.
func (p Profile) Accepts(name, prefix string) bool {
	if prefix != "" && !strings.HasPrefix(name, prefix) {
		return false
	}
	if len(p.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range p.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// MissingIdentity lists the identity groups the column map cannot satisfy.
func (p Profile) MissingIdentity(cols ColumnMap) []string {
	missing := []string{}
	for _, group := range p.Identity {
		found := false
		names := make([]string, 0, len(group))
		for _, f := range group {
			names = append(names, string(f))
			if cols.Has(f) {
				found = true
			}
		}
		if !found {
			missing = append(missing, strings.Join(names, "|"))
		}
	}
	return missing
}
