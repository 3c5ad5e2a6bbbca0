package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"posimport/internal"
)

// replaceAll empties table and inserts every row inside one transaction.
func (d *DB) replaceAll(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	// DELETE keeps the reload transactional on engines where TRUNCATE commits implicitly.
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, d.dialect.Insert(table, columns, InsertPlain))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (d *DB) ReplaceOutletMappings(ctx context.Context, mappings []internal.OutletMapping) (int, error) {
	rows := make([][]any, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []any{m.OutletName, m.AreaManager, m.OutletType, m.DynamicNumber, m.City})
	}
	return d.replaceAll(ctx, TableOutlets, []string{"outlet_name", "area_manager", "outlet_type", "dynamic_number", "city"}, rows)
}

func (d *DB) ListOutletMappings() ([]internal.OutletMapping, error) {
	rows, err := d.conn.Query(`
SELECT outlet_name, area_manager, outlet_type, dynamic_number, city
FROM gofrugal_outlets_mapping ORDER BY outlet_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.OutletMapping
	for rows.Next() {
		var m internal.OutletMapping
		if err := rows.Scan(&m.OutletName, &m.AreaManager, &m.OutletType, &m.DynamicNumber, &m.City); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateDynamicNumbers applies outlet_name -> dynamic_number in one transaction.
func (d *DB) UpdateDynamicNumbers(ctx context.Context, updates map[string]string) (int, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, d.q(`UPDATE gofrugal_outlets_mapping SET dynamic_number = ? WHERE outlet_name = ?`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	updated := 0
	for name, number := range updates {
		res, err := stmt.ExecContext(ctx, number, name)
		if err != nil {
			return 0, fmt.Errorf("update %s: %w", name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			updated += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

func (d *DB) DistinctSalesOutlets() ([]string, error) {
	return d.distinctStrings(`
SELECT DISTINCT outlet_name FROM gofrugal_sales
WHERE outlet_name IS NOT NULL AND outlet_name <> ''
ORDER BY outlet_name`)
}

// DistinctSalesmen collects salesman names from both sales tables.
func (d *DB) DistinctSalesmen() ([]string, error) {
	return d.distinctStrings(`
SELECT name FROM (
  SELECT DISTINCT salesman AS name FROM gofrugal_sales WHERE salesman IS NOT NULL AND salesman <> ''
  UNION
  SELECT DISTINCT salesman_name AS name FROM gofrugal_item_sales WHERE salesman_name IS NOT NULL AND salesman_name <> ''
) names
ORDER BY name`)
}

func (d *DB) distinctStrings(query string) ([]string, error) {
	rows, err := d.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) ReplaceEmployeeMappings(ctx context.Context, mappings []internal.EmployeeMapping) (int, error) {
	rows := make([][]any, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []any{m.EmployeeID, m.SalesGroup, m.ArabicName})
	}
	return d.replaceAll(ctx, TableEmployees, []string{"employee_id", "sales_group", "arabic_name"}, rows)
}

func (d *DB) ListEmployeeMappings() ([]internal.EmployeeMapping, error) {
	rows, err := d.conn.Query(`SELECT employee_id, sales_group, arabic_name FROM gofrugal_employee_mapping ORDER BY employee_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmployeeMapping
	for rows.Next() {
		var m internal.EmployeeMapping
		if err := rows.Scan(&m.EmployeeID, &m.SalesGroup, &m.ArabicName); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *DB) ReplaceCategoryRules(ctx context.Context, rules []internal.CategoryRule) (int, error) {
	rows := make([][]any, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, []any{r.PrefixPattern, r.CategoryName})
	}
	return d.replaceAll(ctx, TableCategory, []string{"prefix_pattern", "category_name"}, rows)
}

func (d *DB) ListCategoryRules() ([]internal.CategoryRule, error) {
	rows, err := d.conn.Query(`SELECT prefix_pattern, category_name FROM product_category_rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CategoryRule
	for rows.Next() {
		var r internal.CategoryRule
		if err := rows.Scan(&r.PrefixPattern, &r.CategoryName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) ReplaceCalendarEvents(ctx context.Context, events []internal.CalendarEvent) (int, error) {
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{e.EventName, e.Year, e.StartDate.Format(dateLayout), e.EndDate.Format(dateLayout), e.Description})
	}
	return d.replaceAll(ctx, TableCalendar, []string{"event_name", "year", "start_date", "end_date", "description"}, rows)
}

func (d *DB) ListCalendarEvents() ([]internal.CalendarEvent, error) {
	rows, err := d.conn.Query(`
SELECT event_name, year, start_date, end_date, description
FROM calendar_events ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CalendarEvent
	for rows.Next() {
		var e internal.CalendarEvent
		var start, end any
		var desc sql.NullString
		if err := rows.Scan(&e.EventName, &e.Year, &start, &end, &desc); err != nil {
			return nil, err
		}
		e.StartDate = derefDate(scanDate(start))
		e.EndDate = derefDate(scanDate(end))
		e.Description = desc.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func derefDate(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
