package reference

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"posimport/internal"
	"posimport/internal/util"
)

var reLeadingDigits = regexp.MustCompile(`^(\d+)`)

// ParseEmployee splits a POS salesman label such as "3050-Manar Balrshid" into
// its employee id and display name.
func ParseEmployee(label string) (internal.EmployeeMapping, bool) {
	s := strings.TrimSpace(label)
	if util.IsBlank(s) {
		return internal.EmployeeMapping{}, false
	}
	if m := reNumberedName.FindStringSubmatch(s); m != nil {
		return internal.EmployeeMapping{EmployeeID: m[1], ArabicName: strings.TrimSpace(m[2])}, true
	}
	if m := reLeadingDigits.FindStringSubmatch(s); m != nil {
		return internal.EmployeeMapping{EmployeeID: m[1], ArabicName: s}, true
	}
	return internal.EmployeeMapping{}, false
}

// DeriveEmployees rebuilds the employee mapping from salesman labels in both sales tables.
// Labels without a numeric id are skipped; the first label per id wins.
func (s *Service) DeriveEmployees(ctx context.Context) ([]internal.EmployeeMapping, error) {
	labels, err := s.db.DistinctSalesmen()
	if err != nil {
		return nil, err
	}
	sort.Strings(labels)

	byID := map[string]struct{}{}
	var mappings []internal.EmployeeMapping
	skipped := 0
	for _, label := range labels {
		emp, ok := ParseEmployee(label)
		if !ok {
			skipped++
			continue
		}
		if _, dup := byID[emp.EmployeeID]; dup {
			continue
		}
		byID[emp.EmployeeID] = struct{}{}
		mappings = append(mappings, emp)
	}

	n, err := s.db.ReplaceEmployeeMappings(ctx, mappings)
	if err != nil {
		return nil, err
	}
	s.logger.Info("employee mapping rebuilt", "employees", n, "labels", len(labels), "without_id", skipped)
	return mappings, nil
}
