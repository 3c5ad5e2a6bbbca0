package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect holds the SQL that differs between the supported engines.
type Dialect struct {
	Name       string
	DriverName string
	types      *strings.Replacer
}

var dialects = map[string]Dialect{
	"sqlite": {
		Name:       "sqlite",
		DriverName: "sqlite",
		types: strings.NewReplacer(
			"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{key}}", "TEXT",
			"{{text}}", "TEXT",
			"{{date}}", "TEXT",
			"{{money}}", "NUMERIC",
			"{{int}}", "INTEGER",
			"{{now}}", "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP",
		),
	},
	"postgres": {
		Name:       "postgres",
		DriverName: "pgx",
		types: strings.NewReplacer(
			"{{id}}", "BIGSERIAL PRIMARY KEY",
			"{{key}}", "TEXT",
			"{{text}}", "TEXT",
			"{{date}}", "DATE",
			"{{money}}", "NUMERIC(14,2)",
			"{{int}}", "BIGINT",
			"{{now}}", "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
		),
	},
	"mysql": {
		Name:       "mysql",
		DriverName: "mysql",
		types: strings.NewReplacer(
			"{{id}}", "BIGINT AUTO_INCREMENT PRIMARY KEY",
			"{{key}}", "VARCHAR(255)",
			"{{text}}", "TEXT",
			"{{date}}", "DATE",
			"{{money}}", "DECIMAL(14,2)",
			"{{int}}", "BIGINT",
			"{{now}}", "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
		),
	},
}

func DialectFor(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database driver: %s", name)
	}
	return d, nil
}

func (d Dialect) ddl(stmt string) string {
	return d.types.Replace(stmt)
}

// Rebind rewrites ? placeholders to $1..$n for postgres.
func (d Dialect) Rebind(query string) string {
	if d.Name != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type InsertMode int

const (
	// InsertIgnoreDuplicates skips rows that violate a unique key.
	InsertIgnoreDuplicates InsertMode = iota
	// InsertPlain is used after a truncate.
	InsertPlain
)

func (d Dialect) Insert(table string, columns []string, mode InsertMode) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	body := fmt.Sprintf("%s (%s) VALUES (%s)", table, strings.Join(columns, ", "), marks)

	var q string
	switch {
	case mode == InsertPlain:
		q = "INSERT INTO " + body
	case d.Name == "mysql":
		q = "INSERT IGNORE INTO " + body
	default:
		q = "INSERT INTO " + body + " ON CONFLICT DO NOTHING"
	}
	return d.Rebind(q)
}

func (d Dialect) Truncate(table string) string {
	if d.Name == "sqlite" {
		return "DELETE FROM " + table
	}
	return "TRUNCATE TABLE " + table
}

// Month renders a date column as YYYY-MM.
func (d Dialect) Month(column string) string {
	switch d.Name {
	case "postgres":
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
	case "mysql":
		return fmt.Sprintf("DATE_FORMAT(%s, '%%Y-%%m')", column)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
	}
}

// Upsert writes key/value into a single-key table.
func (d Dialect) Upsert(table, keyCol, valueCol string) string {
	var q string
	switch d.Name {
	case "mysql":
		q = fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON DUPLICATE KEY UPDATE %s = VALUES(%s)",
			table, keyCol, valueCol, valueCol, valueCol)
	default:
		q = fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT(%s) DO UPDATE SET %s = excluded.%s",
			table, keyCol, valueCol, keyCol, valueCol, valueCol)
	}
	return d.Rebind(q)
}
