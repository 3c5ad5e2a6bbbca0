package reference

import (
	"context"
	"regexp"
	"strings"

	"posimport/internal"
	"posimport/internal/util"
)

var reNumberedName = regexp.MustCompile(`^(\d+)[\s-]+(.+)$`)

// OutletNumber extracts the leading store number of names like "01-Jeddah INT Market".
func OutletNumber(name string) *string {
	m := reNumberedName.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return nil
	}
	return util.StringPtr(m[1])
}

// DeriveOutlets rebuilds the outlet mapping from the distinct outlets seen in sales.
func (s *Service) DeriveOutlets(ctx context.Context) ([]internal.OutletMapping, error) {
	names, err := s.db.DistinctSalesOutlets()
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	mappings := make([]internal.OutletMapping, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if util.IsBlank(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		mappings = append(mappings, internal.OutletMapping{OutletName: name, DynamicNumber: OutletNumber(name)})
	}

	n, err := s.db.ReplaceOutletMappings(ctx, mappings)
	if err != nil {
		return nil, err
	}
	s.logger.Info("outlets mapping rebuilt", "outlets", n)
	return mappings, nil
}
