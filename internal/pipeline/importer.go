package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"posimport/internal"
	"posimport/internal/config"
	"posimport/internal/loader"
	"posimport/internal/storage"
)

type ImportService struct {
	db     *storage.DB
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
}

func NewImportService(db *storage.DB, cfg config.Config, logger *slog.Logger, out io.Writer) *ImportService {
	return &ImportService{db: db, cfg: cfg, logger: logger.With("component", "import"), out: out}
}

type ImportOptions struct {
	FullRefresh bool
	BatchSize   int
}

// SourceDir pairs an input directory with the profile its files follow.
type SourceDir struct {
	Dir     string
	Prefix  string
	Profile Profile
}

func SalesSources(cfg config.Config) []SourceDir {
	return []SourceDir{{Dir: cfg.SalesDir, Prefix: cfg.SalesFilePrefix, Profile: SalesReport}}
}

// ItemSources lists the three item-level export directories in import order.
func ItemSources(cfg config.Config) []SourceDir {
	return []SourceDir{
		{Dir: cfg.ItemDetailDir, Profile: ItemDetail},
		{Dir: cfg.MarginDir, Profile: MarginSummary},
		{Dir: cfg.ItemWorkbookDir, Profile: ItemWorkbook},
	}
}

type SkippedFile struct {
	File   string
	Reason string
}

type ImportSummary struct {
	Command string
	RunID   string
	Files   []FileScan
	Skipped []SkippedFile
	Load    loader.Result
}

func (s *ImportService) ImportSales(ctx context.Context, dir string, opts ImportOptions) (ImportSummary, error) {
	sources := SalesSources(s.cfg)
	sources[0].Dir = dir
	summary := ImportSummary{Command: "import:sales"}
	started := time.Now()

	records, err := collect(s, sources, &summary, ParseSalesFile)
	if err != nil {
		return summary, err
	}
	err = load[internal.SalesRecord](ctx, s, &summary, storage.TableSales, s.db.SalesWriter(insertMode(opts)), records, opts)
	s.recordRun(&summary, started)
	return summary, err
}

func (s *ImportService) ImportItems(ctx context.Context, sources []SourceDir, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{Command: "import:items"}
	started := time.Now()

	records, err := collect(s, sources, &summary, ParseItemFile)
	if err != nil {
		return summary, err
	}
	err = load[internal.ItemSalesRecord](ctx, s, &summary, storage.TableItemSales, s.db.ItemSalesWriter(insertMode(opts)), records, opts)
	s.recordRun(&summary, started)
	return summary, err
}

func insertMode(opts ImportOptions) storage.InsertMode {
	if opts.FullRefresh {
		return storage.InsertPlain
	}
	return storage.InsertIgnoreDuplicates
}

// collect parses every file; source defects skip the file and are remembered in the summary.
func collect[T any](s *ImportService, sources []SourceDir, summary *ImportSummary, parse func(string, Profile) ([]T, FileScan, error)) ([]T, error) {
	var all []T
	for _, src := range sources {
		files, err := ListSourceFiles(src.Dir, src.Prefix, src.Profile)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", src.Dir, err)
		}
		if len(files) == 0 {
			s.logger.Warn("no input files", "dir", src.Dir, "profile", src.Profile.Name)
			continue
		}
		s.logger.Info("reading files", "dir", src.Dir, "profile", src.Profile.Name, "files", len(files))

		for _, path := range files {
			recs, scan, err := parse(path, src.Profile)
			if err != nil {
				if !IsSourceDefect(err) {
					return nil, err
				}
				s.logger.Warn("skipping file", "file", scan.File, "err", err)
				summary.Skipped = append(summary.Skipped, SkippedFile{File: scan.File, Reason: err.Error()})
				continue
			}
			s.logger.Info("file parsed", "file", scan.File, "header_row", scan.HeaderRow,
				"admitted", scan.Admitted, "rejected", scan.RejectedTotal())
			for _, r := range scan.Samples {
				s.logger.Debug("row rejected", "file", scan.File, "row", r.Row, "reason", r.Reason,
					"content", strings.Join(r.Cells, ","))
			}
			summary.Files = append(summary.Files, scan)
			all = append(all, recs...)
		}
	}
	return all, nil
}

func load[T any](ctx context.Context, s *ImportService, summary *ImportSummary, table string, w loader.BatchWriter[T], records []T, opts ImportOptions) error {
	if len(records) == 0 {
		s.logger.Warn("nothing to import", "table", table)
		return nil
	}

	if opts.FullRefresh {
		if err := s.db.Truncate(ctx, table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
		s.logger.Info("table truncated", "table", table)
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = s.cfg.BatchSize
	}
	res, err := loader.Run(ctx, w, records, loader.Options{
		BatchSize:     batch,
		ProgressEvery: s.cfg.ProgressEvery,
		IsFatal:       storage.IsConnectionError,
		Logger:        s.logger.With("table", table),
		Progress: func(_ int, res loader.Result) {
			if res.Failed > 0 {
				fmt.Fprintf(s.out, "imported %d/%d %s rows, %d rolled back\n", res.Persisted(), res.Total, table, res.Failed)
				return
			}
			fmt.Fprintf(s.out, "imported %d/%d %s rows\n", res.Persisted(), res.Total, table)
		},
	})
	summary.Load = res
	if err != nil {
		return fmt.Errorf("load %s: %w", table, err)
	}
	return nil
}

func (s *ImportService) recordRun(summary *ImportSummary, started time.Time) {
	run := internal.ImportRun{
		ID:         storage.NewRunID(),
		Command:    summary.Command,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Counts: map[string]int{
			"files":    len(summary.Files),
			"skipped":  len(summary.Skipped),
			"total":    summary.Load.Total,
			"inserted": summary.Load.Inserted,
			"dupes":    summary.Load.Skipped,
			"failed":   summary.Load.Failed,
		},
	}
	summary.RunID = run.ID
	if err := s.db.InsertRun(run); err != nil {
		s.logger.Warn("run log not written", "err", err)
		return
	}
	if err := s.db.SetMetadata(summary.Command+".last_run", run.FinishedAt.UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("last run not recorded", "err", err)
	}
}

// PrintSummary writes the end-of-run report in plain text.
func PrintSummary(w io.Writer, summary ImportSummary) {
	fmt.Fprintf(w, "%s finished (run %s)\n", summary.Command, summary.RunID)
	for _, f := range summary.Files {
		fmt.Fprintf(w, "  %-40s header row %d, %d admitted, %d rejected\n", f.File, f.HeaderRow, f.Admitted, f.RejectedTotal())
	}
	for _, sk := range summary.Skipped {
		fmt.Fprintf(w, "  skipped %s: %s\n", sk.File, sk.Reason)
	}
	fmt.Fprintf(w, "  total %d, inserted %d, duplicates %d, failed %d\n",
		summary.Load.Total, summary.Load.Inserted, summary.Load.Skipped, summary.Load.Failed)
	for _, fb := range summary.Load.FailedBatches {
		fmt.Fprintf(w, "  batch %d (records %d-%d) rolled back: %v\n", fb.Index, fb.From, fb.To, fb.Err)
	}
}
