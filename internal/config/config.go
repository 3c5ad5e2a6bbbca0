package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	DBDSN      string

	SalesDir        string
	SalesFilePrefix string
	ItemDetailDir   string
	MarginDir       string
	ItemWorkbookDir string
	CategoryFile    string
	OutputDir       string

	BatchSize       int
	ProgressEvery   int
	VerifyTolerance float64

	MappingURL    string
	HTTPTimeoutMs int

	LogLevel string
	LogFile  string

	MailProvider      string
	MailLabel         string
	MailSubjectFilter string
	MailFetchMax      int
	MailInboxDir      string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v, cwd)

	cfg := Config{
		DBDriver:   strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		DBPath:     v.GetString("DB_PATH"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBName:     v.GetString("DB_NAME"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		DBDSN:      v.GetString("DB_DSN"),

		SalesDir:        v.GetString("SALES_DIR"),
		SalesFilePrefix: v.GetString("SALES_FILE_PREFIX"),
		ItemDetailDir:   v.GetString("ITEM_DETAIL_DIR"),
		MarginDir:       v.GetString("MARGIN_DIR"),
		ItemWorkbookDir: v.GetString("ITEM_WORKBOOK_DIR"),
		CategoryFile:    v.GetString("CATEGORY_FILE"),
		OutputDir:       v.GetString("OUTPUT_DIR"),

		BatchSize:       v.GetInt("BATCH_SIZE"),
		ProgressEvery:   v.GetInt("PROGRESS_EVERY"),
		VerifyTolerance: v.GetFloat64("VERIFY_TOLERANCE"),

		MappingURL:    v.GetString("MAPPING_URL"),
		HTTPTimeoutMs: v.GetInt("HTTP_TIMEOUT_MS"),

		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),

		MailProvider:      v.GetString("MAIL_PROVIDER"),
		MailLabel:         v.GetString("MAIL_LABEL"),
		MailSubjectFilter: v.GetString("MAIL_SUBJECT_FILTER"),
		MailFetchMax:      v.GetInt("MAIL_FETCH_MAX"),
		MailInboxDir:      v.GetString("MAIL_INBOX_DIR"),

		GmailClientID:     v.GetString("GMAIL_CLIENT_ID"),
		GmailClientSecret: v.GetString("GMAIL_CLIENT_SECRET"),
		GmailRedirectURI:  v.GetString("GMAIL_REDIRECT_URI"),
		GmailRefreshToken: v.GetString("GMAIL_REFRESH_TOKEN"),

		IMAPHost:     v.GetString("IMAP_HOST"),
		IMAPPort:     v.GetInt("IMAP_PORT"),
		IMAPSecure:   v.GetBool("IMAP_SECURE"),
		IMAPUser:     v.GetString("IMAP_USER"),
		IMAPPassword: v.GetString("IMAP_PASSWORD"),
		IMAPMarkSeen: v.GetBool("IMAP_MARK_SEEN"),
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cwd string) {
	dataDir := filepath.Join(cwd, "data")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", filepath.Join(dataDir, "showroom_sales.db"))
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "")
	v.SetDefault("DB_NAME", "showroom_sales")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_DSN", "")

	v.SetDefault("SALES_DIR", filepath.Join(dataDir, "downloads"))
	v.SetDefault("SALES_FILE_PREFIX", "Report_")
	v.SetDefault("ITEM_DETAIL_DIR", filepath.Join(dataDir, "downloads_3111"))
	v.SetDefault("MARGIN_DIR", filepath.Join(dataDir, "downloads_3016"))
	v.SetDefault("ITEM_WORKBOOK_DIR", filepath.Join(dataDir, "downloads_3126"))
	v.SetDefault("CATEGORY_FILE", filepath.Join(dataDir, "category.xlsx"))
	v.SetDefault("OUTPUT_DIR", filepath.Join(cwd, "out"))

	v.SetDefault("BATCH_SIZE", 1000)
	v.SetDefault("PROGRESS_EVERY", 0)
	v.SetDefault("VERIFY_TOLERANCE", 0.01)

	v.SetDefault("MAPPING_URL", "")
	v.SetDefault("HTTP_TIMEOUT_MS", 30000)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")

	v.SetDefault("MAIL_PROVIDER", "imap")
	v.SetDefault("MAIL_LABEL", "INBOX")
	v.SetDefault("MAIL_SUBJECT_FILTER", "")
	v.SetDefault("MAIL_FETCH_MAX", 50)
	v.SetDefault("MAIL_INBOX_DIR", filepath.Join(dataDir, "inbox"))

	v.SetDefault("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground")
	v.SetDefault("IMAP_PORT", 993)
	v.SetDefault("IMAP_SECURE", true)
	v.SetDefault("IMAP_MARK_SEEN", false)
}

// DSN builds the driver-specific connection string unless DB_DSN is set.
func (c Config) DSN() string {
	if strings.TrimSpace(c.DBDSN) != "" {
		return c.DBDSN
	}
	switch c.DBDriver {
	case "postgres":
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     net.JoinHostPort(c.DBHost, port),
			Path:     "/" + c.DBName,
			RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
		}
		return u.String()
	case "mysql":
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		mc := mysql.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPassword
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.DBHost, port)
		mc.DBName = c.DBName
		mc.ParseTime = true
		return mc.FormatDSN()
	default:
		return c.DBPath
	}
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}
