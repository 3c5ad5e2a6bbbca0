package storage

const (
	TableSales     = "gofrugal_sales"
	TableItemSales = "gofrugal_item_sales"
	TableOutlets   = "gofrugal_outlets_mapping"
	TableEmployees = "gofrugal_employee_mapping"
	TableCategory  = "product_category_rules"
	TableCalendar  = "calendar_events"
	TableRuns      = "import_runs"
	TableReports   = "report_files"
	TableMetadata  = "metadata"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS gofrugal_sales (
  id {{id}},
  outlet_name {{key}} NOT NULL,
  bill_no {{key}} NOT NULL,
  bill_date {{date}},
  net_amount {{money}} NOT NULL DEFAULT 0,
  transaction_type {{key}},
  salesman {{text}},
  source_file {{key}} NOT NULL,
  source_row {{int}} NOT NULL,
  imported_at {{now}},
  UNIQUE(source_file, source_row)
)`,
	`CREATE TABLE IF NOT EXISTS gofrugal_item_sales (
  id {{id}},
  outlet_name {{key}} NOT NULL,
  transaction_type {{key}},
  bill_no {{key}},
  bill_date {{date}},
  item_code {{key}},
  item_name {{text}},
  quantity {{int}} NOT NULL DEFAULT 0,
  net_amount {{money}} NOT NULL DEFAULT 0,
  salesman_name {{text}},
  ref_bill_no {{key}},
  source_file {{key}} NOT NULL,
  source_row {{int}} NOT NULL,
  imported_at {{now}},
  UNIQUE(source_file, source_row)
)`,
	`CREATE TABLE IF NOT EXISTS gofrugal_outlets_mapping (
  id {{id}},
  outlet_name {{key}} NOT NULL UNIQUE,
  area_manager {{text}},
  outlet_type {{text}},
  dynamic_number {{key}},
  city {{text}}
)`,
	`CREATE TABLE IF NOT EXISTS gofrugal_employee_mapping (
  id {{id}},
  employee_id {{key}} NOT NULL UNIQUE,
  sales_group {{text}},
  arabic_name {{text}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS product_category_rules (
  id {{id}},
  prefix_pattern {{key}} NOT NULL,
  category_name {{text}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS calendar_events (
  id {{id}},
  event_name {{key}} NOT NULL,
  year {{int}} NOT NULL,
  start_date {{date}} NOT NULL,
  end_date {{date}} NOT NULL,
  description {{text}}
)`,
	`CREATE TABLE IF NOT EXISTS import_runs (
  id {{key}} PRIMARY KEY,
  command {{key}} NOT NULL,
  started_at {{key}} NOT NULL,
  finished_at {{key}} NOT NULL,
  counts_json {{text}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS report_files (
  id {{id}},
  hash {{key}} NOT NULL UNIQUE,
  provider {{key}} NOT NULL,
  message_id {{key}} NOT NULL,
  file_name {{key}} NOT NULL,
  path {{text}} NOT NULL,
  received_at {{key}},
  created_at {{now}}
)`,
	`CREATE TABLE IF NOT EXISTS metadata (
  meta_key {{key}} PRIMARY KEY,
  meta_value {{text}} NOT NULL
)`,
}
