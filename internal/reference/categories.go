package reference

import (
	"context"
	"fmt"
	"path/filepath"

	"posimport/internal"
	"posimport/internal/pipeline"
	"posimport/internal/util"
)

// ParseCategoryRules reads "item starts with" -> category pairs from the first
// two columns of a workbook whose first row is the header.
func ParseCategoryRules(path string) ([]internal.CategoryRule, error) {
	table, err := pipeline.ReadFile(path)
	if err != nil {
		return nil, &pipeline.SourceError{File: filepath.Base(path), Err: err}
	}
	if len(table.Rows) == 0 || len(table.Rows[0]) < 2 {
		return nil, &pipeline.SourceError{
			File: table.Name,
			Err:  fmt.Errorf("%w: need prefix and category columns", pipeline.ErrMissingColumns),
		}
	}

	var rules []internal.CategoryRule
	for _, row := range table.Rows[1:] {
		prefix := cell(row, 0)
		category := cell(row, 1)
		if util.IsBlank(prefix) || util.IsBlank(category) {
			continue
		}
		rules = append(rules, internal.CategoryRule{PrefixPattern: prefix, CategoryName: category})
	}
	return rules, nil
}

func (s *Service) ImportCategories(ctx context.Context, path string) ([]internal.CategoryRule, error) {
	rules, err := ParseCategoryRules(path)
	if err != nil {
		return nil, err
	}
	n, err := s.db.ReplaceCategoryRules(ctx, rules)
	if err != nil {
		return nil, err
	}
	s.logger.Info("category rules imported", "file", path, "rules", n)
	return rules, nil
}
