package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posimport/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func day(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func strp(v string) *string { return &v }

func TestSalesWriterIgnoresDuplicates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	recs := []internal.SalesRecord{
		{OutletName: "01-City Store", BillNo: "B100", BillDate: day("2024-05-01"), NetAmount: decimal.RequireFromString("1250.75"), SourceFile: "Report_1.csv", SourceRow: 3},
		{OutletName: "01-City Store", BillNo: "B101", BillDate: day("2024-06-02"), NetAmount: decimal.RequireFromString("10"), TransactionType: strp("RETURN"), Salesman: strp("12 - Ali"), SourceFile: "Report_1.csv", SourceRow: 4},
	}

	w := db.SalesWriter(InsertIgnoreDuplicates)
	n, err := w.WriteBatch(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = w.WriteBatch(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := db.ListSales()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B100", got[0].BillNo)
	require.NotNil(t, got[0].BillDate)
	assert.Equal(t, "2024-05-01", got[0].BillDate.Format("2006-01-02"))
	assert.True(t, got[0].NetAmount.Equal(decimal.RequireFromString("1250.75")))
	assert.Nil(t, got[0].TransactionType)
	require.NotNil(t, got[1].Salesman)
	assert.Equal(t, "12 - Ali", *got[1].Salesman)
}

func TestPlainInsertFailsOnDuplicateAndRollsBackBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := internal.ItemSalesRecord{OutletName: "01-City Store", ItemCode: "A1", Quantity: 2, SourceFile: "detail.csv", SourceRow: 5}
	_, err := db.ItemSalesWriter(InsertPlain).WriteBatch(ctx, []internal.ItemSalesRecord{rec})
	require.NoError(t, err)

	other := rec
	other.SourceRow = 6
	_, err = db.ItemSalesWriter(InsertPlain).WriteBatch(ctx, []internal.ItemSalesRecord{other, rec})
	require.Error(t, err)
	assert.False(t, IsConnectionError(err))

	n, err := db.CountRows(TableItemSales)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTruncate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.SalesWriter(InsertPlain).WriteBatch(ctx, []internal.SalesRecord{{OutletName: "X", BillNo: "1", SourceFile: "a.csv", SourceRow: 2}})
	require.NoError(t, err)
	require.NoError(t, db.Truncate(ctx, TableSales))

	n, err := db.CountRows(TableSales)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTableStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.SalesWriter(InsertPlain).WriteBatch(ctx, []internal.SalesRecord{
		{OutletName: "A", BillNo: "1", BillDate: day("2024-05-01"), NetAmount: decimal.NewFromInt(100), TransactionType: strp("SALES"), SourceFile: "a.csv", SourceRow: 2},
		{OutletName: "A", BillNo: "2", BillDate: day("2024-05-20"), NetAmount: decimal.NewFromInt(50), TransactionType: strp("SALES"), SourceFile: "a.csv", SourceRow: 3},
		{OutletName: "B", BillNo: "3", BillDate: day("2024-06-01"), NetAmount: decimal.NewFromInt(-20), TransactionType: strp("RETURN"), SourceFile: "b.csv", SourceRow: 2},
		{OutletName: "B", BillNo: "4", SourceFile: "b.csv", SourceRow: 3},
	})
	require.NoError(t, err)

	st, err := db.TableStats(TableSales)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Rows)
	assert.True(t, st.Amount.Equal(decimal.NewFromInt(130)))
	assert.Equal(t, []string{"2024-05", "2024-06", "unknown"}, bucketKeys(st.ByMonth))
	assert.Equal(t, 2, st.ByMonth[0].Rows)
	assert.Equal(t, []string{"RETURN", "SALES", "unknown"}, bucketKeys(st.ByType))
	assert.Equal(t, []string{"a.csv", "b.csv"}, bucketKeys(st.BySourceFile))
	require.NotNil(t, st.FirstBillDate)
	require.NotNil(t, st.LastBillDate)
	assert.Equal(t, "2024-05-01", st.FirstBillDate.Format("2006-01-02"))
	assert.Equal(t, "2024-06-01", st.LastBillDate.Format("2006-01-02"))
}

func bucketKeys(b []Bucket) []string {
	out := make([]string, 0, len(b))
	for _, x := range b {
		out = append(out, x.Key)
	}
	return out
}

func TestOutletMappingsAndDynamicNumbers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ReplaceOutletMappings(ctx, []internal.OutletMapping{
		{OutletName: "01-City Store", DynamicNumber: strp("01")},
		{OutletName: "02-Mall"},
	})
	require.NoError(t, err)

	n, err := db.UpdateDynamicNumbers(ctx, map[string]string{"02-Mall": "7002", "99-Missing": "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := db.ListOutletMappings()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "01", *got[0].DynamicNumber)
	assert.Equal(t, "7002", *got[1].DynamicNumber)
}

func TestDistinctSalesmen(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.SalesWriter(InsertPlain).WriteBatch(ctx, []internal.SalesRecord{
		{OutletName: "A", BillNo: "1", Salesman: strp("12 - Ali"), SourceFile: "a.csv", SourceRow: 2},
		{OutletName: "A", BillNo: "2", Salesman: strp("12 - Ali"), SourceFile: "a.csv", SourceRow: 3},
	})
	require.NoError(t, err)
	_, err = db.ItemSalesWriter(InsertPlain).WriteBatch(ctx, []internal.ItemSalesRecord{
		{OutletName: "A", ItemName: "Oud", Salesman: strp("7 Omar"), SourceFile: "d.csv", SourceRow: 2},
	})
	require.NoError(t, err)

	names, err := db.DistinctSalesmen()
	require.NoError(t, err)
	assert.Equal(t, []string{"12 - Ali", "7 Omar"}, names)
}

func TestReferenceTablesReplace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ReplaceCategoryRules(ctx, []internal.CategoryRule{{PrefixPattern: "OUD", CategoryName: "Oud"}})
	require.NoError(t, err)
	_, err = db.ReplaceCategoryRules(ctx, []internal.CategoryRule{{PrefixPattern: "PF", CategoryName: "Perfume"}})
	require.NoError(t, err)
	rules, err := db.ListCategoryRules()
	require.NoError(t, err)
	assert.Equal(t, []internal.CategoryRule{{PrefixPattern: "PF", CategoryName: "Perfume"}}, rules)

	_, err = db.ReplaceCalendarEvents(ctx, []internal.CalendarEvent{
		{EventName: "Saudi National Day", Year: 2024, StartDate: *day("2024-09-23"), EndDate: *day("2024-09-23"), Description: "Saudi National Day"},
	})
	require.NoError(t, err)
	events, err := db.ListCalendarEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-09-23", events[0].StartDate.Format("2006-01-02"))

	_, err = db.ReplaceEmployeeMappings(ctx, []internal.EmployeeMapping{{EmployeeID: "12", ArabicName: "Ali"}})
	require.NoError(t, err)
	emps, err := db.ListEmployeeMappings()
	require.NoError(t, err)
	assert.Equal(t, "Ali", emps[0].ArabicName)
}

func TestRunsMetadataAndReportFiles(t *testing.T) {
	db := openTestDB(t)

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.InsertRun(internal.ImportRun{Command: "import:sales", StartedAt: start, FinishedAt: start.Add(time.Minute), Counts: map[string]int{"inserted": 3}}))
	runs, err := db.ListRuns("import:sales")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].ID)
	assert.Equal(t, 3, runs[0].Counts["inserted"])

	v, err := db.GetMetadata("missing")
	require.NoError(t, err)
	assert.Nil(t, v)
	require.NoError(t, db.SetMetadata("import:sales.last_run", "a"))
	require.NoError(t, db.SetMetadata("import:sales.last_run", "b"))
	v, err = db.GetMetadata("import:sales.last_run")
	require.NoError(t, err)
	assert.Equal(t, "b", *v)

	rf := internal.ReportFile{Hash: "abc", Provider: "imap", MessageID: "1", FileName: "Report_1.csv", Path: "/tmp/Report_1.csv"}
	ok, err := db.RecordReportFile(rf)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.RecordReportFile(rf)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := db.GetReportFileByHash("abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Report_1.csv", got.FileName)
}

func TestDialects(t *testing.T) {
	pg, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2) ON CONFLICT DO NOTHING", pg.Insert("t", []string{"a", "b"}, InsertIgnoreDuplicates))
	assert.Equal(t, "TRUNCATE TABLE t", pg.Truncate("t"))

	my, err := DialectFor("mysql")
	require.NoError(t, err)
	assert.Equal(t, "INSERT IGNORE INTO t (a, b) VALUES (?, ?)", my.Insert("t", []string{"a", "b"}, InsertIgnoreDuplicates))
	assert.Equal(t, "DATE_FORMAT(bill_date, '%Y-%m')", my.Month("bill_date"))

	lite, err := DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t (a) VALUES (?)", lite.Insert("t", []string{"a"}, InsertPlain))
	assert.Equal(t, "DELETE FROM t", lite.Truncate("t"))

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(fmt.Errorf("batch 3: %w", io.EOF)))
	assert.True(t, IsConnectionError(mysql.ErrInvalidConn))
	assert.True(t, IsConnectionError(&pgconn.PgError{Code: "08006"}))
	assert.False(t, IsConnectionError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsConnectionError(errors.New("constraint failed: UNIQUE")))
	assert.False(t, IsConnectionError(nil))
}

func TestClosedDatabaseIsConnectionError(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.SalesWriter(InsertPlain).WriteBatch(context.Background(), []internal.SalesRecord{{OutletName: "A", BillNo: "1", SourceFile: "a.csv", SourceRow: 2}})
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}
