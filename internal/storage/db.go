package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"posimport/internal"
)

const dateLayout = "2006-01-02"

type DB struct {
	conn    *sql.DB
	dialect Dialect
}

// Open connects with the given driver (sqlite, postgres or mysql) and ensures the schema.
func Open(driverName, dsn string) (*DB, error) {
	dialect, err := DialectFor(driverName)
	if err != nil {
		return nil, err
	}

	if dialect.Name == "sqlite" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, err
	}

	if dialect.Name == "sqlite" {
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect %s: %w", dialect.Name, err)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) init() error {
	for _, stmt := range schema {
		if _, err := d.conn.Exec(d.dialect.ddl(stmt)); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (d *DB) q(query string) string {
	return d.dialect.Rebind(query)
}

// Truncate empties a table before a full-refresh load.
func (d *DB) Truncate(ctx context.Context, table string) error {
	_, err := d.conn.ExecContext(ctx, d.dialect.Truncate(table))
	return err
}

func (d *DB) CountRows(table string) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
	return n, err
}

// BatchWriter inserts one batch per transaction and reports rows actually inserted.
type BatchWriter[T any] struct {
	db    *DB
	query string
	args  func(T) []any
}

func (w *BatchWriter[T]) WriteBatch(ctx context.Context, batch []T) (int, error) {
	tx, err := w.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, w.query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range batch {
		res, err := stmt.ExecContext(ctx, w.args(rec)...)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

var salesColumns = []string{
	"outlet_name", "bill_no", "bill_date", "net_amount", "transaction_type", "salesman", "source_file", "source_row",
}

func (d *DB) SalesWriter(mode InsertMode) *BatchWriter[internal.SalesRecord] {
	return &BatchWriter[internal.SalesRecord]{
		db:    d,
		query: d.dialect.Insert(TableSales, salesColumns, mode),
		args: func(r internal.SalesRecord) []any {
			return []any{r.OutletName, r.BillNo, dateArg(r.BillDate), r.NetAmount, r.TransactionType, r.Salesman, r.SourceFile, r.SourceRow}
		},
	}
}

var itemSalesColumns = []string{
	"outlet_name", "transaction_type", "bill_no", "bill_date", "item_code", "item_name",
	"quantity", "net_amount", "salesman_name", "ref_bill_no", "source_file", "source_row",
}

func (d *DB) ItemSalesWriter(mode InsertMode) *BatchWriter[internal.ItemSalesRecord] {
	return &BatchWriter[internal.ItemSalesRecord]{
		db:    d,
		query: d.dialect.Insert(TableItemSales, itemSalesColumns, mode),
		args: func(r internal.ItemSalesRecord) []any {
			return []any{
				r.OutletName, r.TransactionType, r.BillNo, dateArg(r.BillDate), r.ItemCode, r.ItemName,
				r.Quantity, r.NetAmount, r.Salesman, r.RefBillNo, r.SourceFile, r.SourceRow,
			}
		},
	}
}

func (d *DB) ListSales() ([]internal.SalesRecord, error) {
	rows, err := d.conn.Query(`
SELECT outlet_name, bill_no, bill_date, net_amount, transaction_type, salesman, source_file, source_row
FROM gofrugal_sales ORDER BY source_file, source_row`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SalesRecord
	for rows.Next() {
		var r internal.SalesRecord
		var billDate any
		if err := rows.Scan(&r.OutletName, &r.BillNo, &billDate, &r.NetAmount, &r.TransactionType, &r.Salesman, &r.SourceFile, &r.SourceRow); err != nil {
			return nil, err
		}
		r.BillDate = scanDate(billDate)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) ListItemSales() ([]internal.ItemSalesRecord, error) {
	rows, err := d.conn.Query(`
SELECT outlet_name, transaction_type, bill_no, bill_date, item_code, item_name,
       quantity, net_amount, salesman_name, ref_bill_no, source_file, source_row
FROM gofrugal_item_sales ORDER BY source_file, source_row`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ItemSalesRecord
	for rows.Next() {
		var r internal.ItemSalesRecord
		var billDate any
		var code, name sql.NullString
		if err := rows.Scan(
			&r.OutletName, &r.TransactionType, &r.BillNo, &billDate, &code, &name,
			&r.Quantity, &r.NetAmount, &r.Salesman, &r.RefBillNo, &r.SourceFile, &r.SourceRow,
		); err != nil {
			return nil, err
		}
		r.BillDate = scanDate(billDate)
		r.ItemCode = code.String
		r.ItemName = name.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func NewRunID() string {
	return uuid.NewString()
}

func (d *DB) InsertRun(run internal.ImportRun) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	countsJSON, _ := json.Marshal(run.Counts)
	_, err := d.conn.Exec(d.q(`INSERT INTO import_runs (id, command, started_at, finished_at, counts_json) VALUES (?, ?, ?, ?, ?)`),
		run.ID, run.Command, run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339), string(countsJSON))
	return err
}

func (d *DB) ListRuns(command string) ([]internal.ImportRun, error) {
	rows, err := d.conn.Query(d.q(`
SELECT id, command, started_at, finished_at, counts_json
FROM import_runs WHERE command = ? ORDER BY started_at ASC`), command)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ImportRun
	for rows.Next() {
		var run internal.ImportRun
		var started, finished, countsJSON string
		if err := rows.Scan(&run.ID, &run.Command, &started, &finished, &countsJSON); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		_ = json.Unmarshal([]byte(countsJSON), &run.Counts)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(d.dialect.Upsert(TableMetadata, "meta_key", "meta_value"), key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(d.q(`SELECT meta_value FROM metadata WHERE meta_key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// scanDate accepts what the three drivers hand back for a date column.
func scanDate(v any) *time.Time {
	switch x := v.(type) {
	case time.Time:
		day := time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC)
		return &day
	case string:
		return parseStoredDate(x)
	case []byte:
		return parseStoredDate(string(x))
	default:
		return nil
	}
}

func parseStoredDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) >= len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
