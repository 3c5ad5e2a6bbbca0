package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"posimport/internal/config"
	"posimport/internal/pipeline"
	"posimport/internal/storage"
)

// FileCheck compares one source file with what the table holds for it.
type FileCheck struct {
	File     string
	Dir      string
	Profile  string
	Expected int
	Actual   int
	Rejected int
	Error    string
	// Shared is set when another input directory holds a file of the same
	// name. Rows are keyed by base name, so Actual covers all of them.
	Shared bool
}

func (f FileCheck) Diff() int {
	return f.Actual - f.Expected
}

type TableCheck struct {
	Table    string
	Expected int
	Stats    storage.TableStats
	Files    []FileCheck
	// Orphans are source_file values in the table with no file on disk.
	Orphans []storage.Bucket
	OK      bool
}

type Report struct {
	GeneratedAt time.Time
	Tolerance   float64
	Tables      []TableCheck
}

func (r Report) OK() bool {
	for _, t := range r.Tables {
		if !t.OK {
			return false
		}
	}
	return true
}

type Service struct {
	db     *storage.DB
	cfg    config.Config
	logger *slog.Logger
}

func NewService(db *storage.DB, cfg config.Config, logger *slog.Logger) *Service {
	return &Service{db: db, cfg: cfg, logger: logger.With("component", "verify")}
}

// Run recounts every input file with the import admission rules and compares
// the result with the loaded tables.
func (s *Service) Run(ctx context.Context) (Report, error) {
	report := Report{GeneratedAt: time.Now(), Tolerance: s.cfg.VerifyTolerance}

	targets := []struct {
		table   string
		sources []pipeline.SourceDir
	}{
		{storage.TableSales, pipeline.SalesSources(s.cfg)},
		{storage.TableItemSales, pipeline.ItemSources(s.cfg)},
	}
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		check, err := s.checkTable(target.table, target.sources)
		if err != nil {
			return report, err
		}
		s.logger.Info("table checked", "table", check.Table, "expected", check.Expected,
			"actual", check.Stats.Rows, "ok", check.OK)
		report.Tables = append(report.Tables, check)
	}
	return report, nil
}

func (s *Service) checkTable(table string, sources []pipeline.SourceDir) (TableCheck, error) {
	stats, err := s.db.TableStats(table)
	if err != nil {
		return TableCheck{}, err
	}
	check := TableCheck{Table: table, Stats: stats}

	actual := map[string]int{}
	for _, b := range stats.BySourceFile {
		actual[b.Key] = b.Rows
	}
	type sourceFile struct {
		path string
		src  pipeline.SourceDir
	}
	var found []sourceFile
	seen := map[string]int{}
	for _, src := range sources {
		files, err := pipeline.ListSourceFiles(src.Dir, src.Prefix, src.Profile)
		if err != nil {
			return check, fmt.Errorf("list %s: %w", src.Dir, err)
		}
		for _, path := range files {
			found = append(found, sourceFile{path: path, src: src})
			seen[filepath.Base(path)]++
		}
	}

	for _, sf := range found {
		name := filepath.Base(sf.path)
		fc := FileCheck{
			File:    name,
			Dir:     sf.src.Dir,
			Profile: sf.src.Profile.Name,
			Actual:  actual[name],
			Shared:  seen[name] > 1,
		}
		if fc.Shared {
			s.logger.Warn("file name used in several input directories", "file", name, "dir", sf.src.Dir)
		}
		scan, err := pipeline.ScanFile(sf.path, sf.src.Profile)
		if err != nil {
			if !pipeline.IsSourceDefect(err) {
				return check, err
			}
			fc.Error = err.Error()
		} else {
			fc.Expected = scan.Admitted
			fc.Rejected = scan.RejectedTotal()
		}
		check.Expected += fc.Expected
		check.Files = append(check.Files, fc)
	}

	for _, b := range stats.BySourceFile {
		if _, ok := seen[b.Key]; !ok {
			check.Orphans = append(check.Orphans, b)
		}
	}
	check.OK = WithinTolerance(check.Expected, stats.Rows, s.cfg.VerifyTolerance)
	return check, nil
}

// WithinTolerance reports whether |actual-expected| <= tolerance*expected.
func WithinTolerance(expected, actual int, tolerance float64) bool {
	diff := math.Abs(float64(actual - expected))
	return diff <= tolerance*float64(expected)
}

func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "verification at %s (tolerance %.2f%%)\n", r.GeneratedAt.Format(time.RFC3339), r.Tolerance*100)
	for _, t := range r.Tables {
		verdict := "OK"
		if !t.OK {
			verdict = "MISMATCH"
		}
		fmt.Fprintf(w, "\n[%s] %s: expected %d, loaded %d, amount %s\n",
			t.Table, verdict, t.Expected, t.Stats.Rows, t.Stats.Amount.StringFixed(2))
		if t.Stats.FirstBillDate != nil && t.Stats.LastBillDate != nil {
			fmt.Fprintf(w, "  date range: %s to %s\n",
				t.Stats.FirstBillDate.Format("2006-01-02"), t.Stats.LastBillDate.Format("2006-01-02"))
		}
		printBuckets(w, "by month", t.Stats.ByMonth)
		printBuckets(w, "by transaction type", t.Stats.ByType)

		if len(t.Files) > 0 {
			fmt.Fprintln(w, "  by file:")
		}
		for _, f := range t.Files {
			if f.Error != "" {
				fmt.Fprintf(w, "    %-40s unreadable: %s (loaded %d)\n", f.File, f.Error, f.Actual)
				continue
			}
			if f.Shared {
				fmt.Fprintf(w, "    %-40s expected %d in %s, loaded %d for the name in all directories\n",
					f.File, f.Expected, f.Dir, f.Actual)
				continue
			}
			fmt.Fprintf(w, "    %-40s expected %d, loaded %d, diff %+d\n", f.File, f.Expected, f.Actual, f.Diff())
		}
		for _, o := range t.Orphans {
			fmt.Fprintf(w, "    %-40s loaded %d, no source file\n", o.Key, o.Rows)
		}
	}
}

func printBuckets(w io.Writer, title string, buckets []storage.Bucket) {
	if len(buckets) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", title)
	for _, b := range buckets {
		fmt.Fprintf(w, "    %s: %d rows, %s\n", b.Key, b.Rows, b.Amount.StringFixed(2))
	}
}
