package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"posimport/internal/config"
	"posimport/internal/connectors"
	"posimport/internal/logging"
	"posimport/internal/pipeline"
	"posimport/internal/reference"
	"posimport/internal/storage"
	"posimport/internal/verify"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
	must(err)
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// inspect never touches the database.
	if cmd == "inspect" {
		runInspect(args)
		return
	}

	db, err := storage.Open(cfg.DBDriver, cfg.DSN())
	must(err)
	defer db.Close()
	logger.Debug("database ready", "driver", cfg.DBDriver)

	out := os.Stdout
	switch cmd {
	case "import:sales":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", cfg.SalesDir, "directory with sales report CSVs")
		opts := importFlags(fs)
		_ = fs.Parse(args)
		svc := pipeline.NewImportService(db, cfg, logger, out)
		summary, err := svc.ImportSales(ctx, *dir, *opts)
		pipeline.PrintSummary(out, summary)
		must(err)
	case "import:items":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		detail := fs.String("detail-dir", cfg.ItemDetailDir, "item detail CSV directory")
		margin := fs.String("margin-dir", cfg.MarginDir, "margin summary CSV directory")
		workbooks := fs.String("workbook-dir", cfg.ItemWorkbookDir, "item xls/xlsx directory")
		opts := importFlags(fs)
		_ = fs.Parse(args)
		sources := pipeline.ItemSources(cfg)
		sources[0].Dir, sources[1].Dir, sources[2].Dir = *detail, *margin, *workbooks
		svc := pipeline.NewImportService(db, cfg, logger, out)
		summary, err := svc.ImportItems(ctx, sources, *opts)
		pipeline.PrintSummary(out, summary)
		must(err)
	case "outlets:derive":
		svc := reference.NewService(db, cfg, logger, out)
		mappings, err := svc.DeriveOutlets(ctx)
		must(err)
		fmt.Fprintf(out, "outlets mapping rebuilt: %d outlets\n", len(mappings))
		for i, m := range mappings {
			if i == 10 {
				break
			}
			fmt.Fprintf(out, "  %s -> %s\n", m.OutletName, deref(m.DynamicNumber))
		}
	case "outlets:reconcile":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		_ = fs.Parse(args)
		svc := reference.NewService(db, cfg, logger, out)
		res, err := svc.ReconcileOutlets(ctx, fs.Arg(0))
		must(err)
		reference.PrintReconcile(out, res)
	case "employees:derive":
		svc := reference.NewService(db, cfg, logger, out)
		mappings, err := svc.DeriveEmployees(ctx)
		must(err)
		fmt.Fprintf(out, "employee mapping rebuilt: %d employees\n", len(mappings))
	case "categories:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", cfg.CategoryFile, "category workbook")
		_ = fs.Parse(args)
		svc := reference.NewService(db, cfg, logger, out)
		rules, err := svc.ImportCategories(ctx, *file)
		must(err)
		fmt.Fprintf(out, "imported %d category rules from %s\n", len(rules), *file)
	case "calendar:seed":
		svc := reference.NewService(db, cfg, logger, out)
		n, err := svc.SeedCalendar(ctx)
		must(err)
		fmt.Fprintf(out, "seeded %d calendar events\n", n)
	case "verify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		xlsx := fs.String("out", "", "optional xlsx report path")
		_ = fs.Parse(args)
		report, err := verify.NewService(db, cfg, logger).Run(ctx)
		must(err)
		report.Print(out)
		if strings.TrimSpace(*xlsx) != "" {
			path := *xlsx
			if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
				path = filepath.Join(cfg.OutputDir, path)
			}
			must(verify.ExportXLSX(report, path))
			fmt.Fprintf(out, "report written to %s\n", path)
		}
		if !report.OK() {
			os.Exit(2)
		}
	case "mail:fetch-reports":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailProvider, "gmail|imap")
		label := fs.String("label", cfg.MailLabel, "mailbox/label")
		subject := fs.String("subject", cfg.MailSubjectFilter, "subject filter")
		max := fs.Int("max", cfg.MailFetchMax, "max messages")
		dir := fs.String("dir", "", "save every attachment here instead of routing by type")
		_ = fs.Parse(args)
		conn, err := connectors.New(cfg, strings.ToLower(strings.TrimSpace(*provider)))
		must(err)
		router := connectors.Router{
			SalesDir:        cfg.SalesDir,
			SalesFilePrefix: cfg.SalesFilePrefix,
			WorkbookDir:     cfg.ItemWorkbookDir,
			InboxDir:        cfg.MailInboxDir,
			Override:        *dir,
		}
		res, err := connectors.NewFetchService(db, conn, router, logger).FetchReports(ctx, *label, *subject, *max)
		must(err)
		connectors.PrintFetch(out, res)
	default:
		usage()
		os.Exit(1)
	}
}

func importFlags(fs *flag.FlagSet) *pipeline.ImportOptions {
	opts := &pipeline.ImportOptions{}
	fs.BoolVar(&opts.FullRefresh, "full-refresh", false, "truncate the target table before loading")
	fs.IntVar(&opts.BatchSize, "batch", 0, "rows per transaction (default BATCH_SIZE)")
	return opts
}

func runInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	file := fs.String("file", "", "file to inspect")
	profile := fs.String("profile", "sales-report", strings.Join(pipeline.ProfileNames(), "|"))
	sample := fs.Int("sample", 5, "records to print")
	_ = fs.Parse(args)
	if strings.TrimSpace(*file) == "" {
		must(fmt.Errorf("--file is required"))
	}
	p, ok := pipeline.ProfileByName(*profile)
	if !ok {
		must(fmt.Errorf("unknown profile %q", *profile))
	}
	report, err := pipeline.Inspect(*file, p, *sample)
	must(err)
	report.Print(os.Stdout)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func usage() {
	fmt.Println("usage: posimport <command>")
	fmt.Println("commands:")
	fmt.Println("  import:sales [--dir=...] [--full-refresh] [--batch=1000]")
	fmt.Println("  import:items [--detail-dir=...] [--margin-dir=...] [--workbook-dir=...] [--full-refresh] [--batch=1000]")
	fmt.Println("  inspect --file=... [--profile=" + strings.Join(pipeline.ProfileNames(), "|") + "] [--sample=5]")
	fmt.Println("  outlets:derive")
	fmt.Println("  outlets:reconcile [mapping.xlsx]")
	fmt.Println("  employees:derive")
	fmt.Println("  categories:import [--file=category.xlsx]")
	fmt.Println("  calendar:seed")
	fmt.Println("  verify [--out=verify.xlsx]")
	fmt.Println("  mail:fetch-reports [--provider=imap|gmail] [--label=INBOX] [--subject=...] [--max=50] [--dir=...]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
