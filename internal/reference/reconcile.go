package reference

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"posimport/internal/config"
	"posimport/internal/storage"
	"posimport/internal/util"
)

const notFoundListed = 10

// Service maintains the reference tables that sit next to the imported sales.
type Service struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
}

func NewService(db *storage.DB, cfg config.Config, logger *slog.Logger, out io.Writer) *Service {
	return &Service{
		db:     db,
		client: NewClient(cfg),
		cfg:    cfg,
		logger: logger.With("component", "reference"),
		out:    out,
	}
}

type ReconcileResult struct {
	Source    string
	Total     int
	Updated   int
	Unchanged int
	NotFound  []string
	// Suggestions maps an unmatched outlet to the closest mapping name.
	Suggestions map[string]string
}

// ReconcileOutlets loads the store mapping and rewrites dynamic_number for every
// outlet whose stored value differs. Outlets missing from the mapping are left
// untouched and reported.
func (s *Service) ReconcileOutlets(ctx context.Context, localPath string) (ReconcileResult, error) {
	if localPath != "" {
		s.logger.Info("using local mapping file", "path", localPath)
	} else {
		s.logger.Info("fetching mapping", "url", s.cfg.MappingURL)
	}
	mapping, err := s.client.FetchMapping(ctx, localPath)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("load mapping: %w", err)
	}
	s.logger.Info("mapping loaded", "source", mapping.Source, "mappings", len(mapping.ByOutlet),
		"number_column", mapping.NumberColumn, "outlet_column", mapping.OutletColumn)

	res, err := s.reconcile(ctx, mapping)
	if err != nil {
		return res, err
	}
	if err := s.db.SetMetadata("outlets:reconcile.last_run", time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("last run not recorded", "err", err)
	}
	return res, nil
}

func (s *Service) reconcile(ctx context.Context, mapping StoreMapping) (ReconcileResult, error) {
	outlets, err := s.db.ListOutletMappings()
	if err != nil {
		return ReconcileResult{}, err
	}

	res := ReconcileResult{Source: mapping.Source, Total: len(outlets), Suggestions: map[string]string{}}
	names := make([]string, 0, len(mapping.ByOutlet))
	for name := range mapping.ByOutlet {
		names = append(names, name)
	}
	idx := BuildIndex(names)

	updates := map[string]string{}
	for _, o := range outlets {
		mapped, ok := mapping.ByOutlet[o.OutletName]
		if !ok {
			res.NotFound = append(res.NotFound, o.OutletName)
			if hit, ok := idx.Suggest(o.OutletName); ok {
				res.Suggestions[o.OutletName] = hit
			}
			continue
		}
		current := util.Deref(o.DynamicNumber)
		if current == mapped {
			res.Unchanged++
			continue
		}
		updates[o.OutletName] = mapped
		s.logger.Debug("outlet number changed", "outlet", o.OutletName, "from", current, "to", mapped)
	}

	if len(updates) > 0 {
		n, err := s.db.UpdateDynamicNumbers(ctx, updates)
		if err != nil {
			return res, fmt.Errorf("update outlets: %w", err)
		}
		res.Updated = n
	}
	sort.Strings(res.NotFound)
	return res, nil
}

func PrintReconcile(w io.Writer, res ReconcileResult) {
	fmt.Fprintf(w, "reconciled %d outlets from %s: updated=%d unchanged=%d not_found=%d\n",
		res.Total, res.Source, res.Updated, res.Unchanged, len(res.NotFound))
	if len(res.NotFound) == 0 {
		return
	}
	fmt.Fprintf(w, "%d outlets not found in mapping:\n", len(res.NotFound))
	for i, name := range res.NotFound {
		if i == notFoundListed {
			fmt.Fprintf(w, "  ... and %d more\n", len(res.NotFound)-notFoundListed)
			break
		}
		if hit, ok := res.Suggestions[name]; ok {
			fmt.Fprintf(w, "  - %s (did you mean %q?)\n", name, hit)
			continue
		}
		fmt.Fprintf(w, "  - %s\n", name)
	}
}
