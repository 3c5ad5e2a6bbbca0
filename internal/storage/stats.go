package storage

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bucket is one group of a GROUP BY breakdown.
type Bucket struct {
	Key    string
	Rows   int
	Amount decimal.Decimal
}

type TableStats struct {
	Table         string
	Rows          int
	Amount        decimal.Decimal
	ByMonth       []Bucket
	ByType        []Bucket
	BySourceFile  []Bucket
	FirstBillDate *time.Time
	LastBillDate  *time.Time
}

func (d *DB) TableStats(table string) (TableStats, error) {
	st := TableStats{Table: table}

	var amount decimal.NullDecimal
	if err := d.conn.QueryRow(`SELECT COUNT(*), SUM(net_amount) FROM ` + table).Scan(&st.Rows, &amount); err != nil {
		return st, fmt.Errorf("count %s: %w", table, err)
	}
	st.Amount = amount.Decimal

	var err error
	month := d.dialect.Month("bill_date")
	if st.ByMonth, err = d.buckets(fmt.Sprintf(`
SELECT COALESCE(%s, 'unknown') AS k, COUNT(*), SUM(net_amount)
FROM %s GROUP BY COALESCE(%s, 'unknown') ORDER BY k`, month, table, month)); err != nil {
		return st, err
	}
	if st.ByType, err = d.buckets(fmt.Sprintf(`
SELECT COALESCE(transaction_type, 'unknown') AS k, COUNT(*), SUM(net_amount)
FROM %s GROUP BY COALESCE(transaction_type, 'unknown') ORDER BY k`, table)); err != nil {
		return st, err
	}
	if st.BySourceFile, err = d.buckets(fmt.Sprintf(`
SELECT source_file AS k, COUNT(*), SUM(net_amount)
FROM %s GROUP BY source_file ORDER BY k`, table)); err != nil {
		return st, err
	}

	var first, last any
	if err := d.conn.QueryRow(`SELECT MIN(bill_date), MAX(bill_date) FROM ` + table).Scan(&first, &last); err != nil {
		return st, fmt.Errorf("date range %s: %w", table, err)
	}
	st.FirstBillDate = scanDate(first)
	st.LastBillDate = scanDate(last)

	return st, nil
}

func (d *DB) buckets(query string) ([]Bucket, error) {
	rows, err := d.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		var amount decimal.NullDecimal
		if err := rows.Scan(&b.Key, &b.Rows, &amount); err != nil {
			return nil, err
		}
		b.Amount = amount.Decimal
		out = append(out, b)
	}
	return out, rows.Err()
}
