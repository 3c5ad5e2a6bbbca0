package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecordKind string

const (
	KindSales     RecordKind = "sales"
	KindItemSales RecordKind = "item_sales"
)

const (
	TransactionSales  = "SALES"
	TransactionReturn = "RETURN"
)

// SalesRecord is one bill-level row of a sales report.
type SalesRecord struct {
	OutletName      string
	BillNo          string
	BillDate        *time.Time
	NetAmount       decimal.Decimal
	TransactionType *string
	Salesman        *string
	SourceFile      string
	SourceRow       int
}

// ItemSalesRecord is one line item of a bill, or one item aggregate of a margin summary.
type ItemSalesRecord struct {
	OutletName      string
	TransactionType *string
	BillNo          *string
	BillDate        *time.Time
	ItemCode        string
	ItemName        string
	Quantity        int64
	NetAmount       decimal.Decimal
	Salesman        *string
	RefBillNo       *string
	SourceFile      string
	SourceRow       int
}

type OutletMapping struct {
	OutletName    string
	AreaManager   *string
	OutletType    *string
	DynamicNumber *string
	City          *string
}

type EmployeeMapping struct {
	EmployeeID string
	SalesGroup *string
	ArabicName string
}

type CategoryRule struct {
	PrefixPattern string
	CategoryName  string
}

type CalendarEvent struct {
	EventName   string
	Year        int
	StartDate   time.Time
	EndDate     time.Time
	Description string
}

type ReportFile struct {
	ID         int
	Hash       string
	Provider   string
	MessageID  string
	FileName   string
	Path       string
	ReceivedAt string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type ImportRun struct {
	ID         string
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     map[string]int
}
