package reference

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"posimport/internal/pipeline"
	"posimport/internal/util"
)

// StoreMapping maps an outlet name to its store number.
type StoreMapping struct {
	Source        string
	OutletColumn  string
	NumberColumn  string
	ByOutlet      map[string]string
	SkippedBlanks int
}

// ParseStoreMapping reads a mapping workbook whose first row is the header.
// Columns are resolved by name; when that fails the first column is taken as
// the store number and the second as the outlet name.
func ParseStoreMapping(name string, blob []byte) (StoreMapping, error) {
	table, err := pipeline.ReadBytes(filepath.Base(name), blob)
	if err != nil {
		return StoreMapping{}, &pipeline.SourceError{File: filepath.Base(name), Err: err}
	}
	if len(table.Rows) == 0 {
		return StoreMapping{}, &pipeline.SourceError{File: table.Name, Err: pipeline.ErrHeaderNotFound}
	}

	header := table.Rows[0]
	cols := pipeline.MapColumns(header, pipeline.StoreMapping.Rules)
	numberIdx := cols.Index(pipeline.FieldStoreNumber)
	outletIdx := cols.Index(pipeline.FieldOutletName)
	if numberIdx < 0 || outletIdx < 0 {
		if len(header) < 2 {
			return StoreMapping{}, &pipeline.SourceError{
				File: table.Name,
				Err:  fmt.Errorf("%w: need store number and outlet name", pipeline.ErrMissingColumns),
			}
		}
		numberIdx, outletIdx = 0, 1
	}

	m := StoreMapping{
		Source:       table.Name,
		OutletColumn: header[outletIdx],
		NumberColumn: header[numberIdx],
		ByOutlet:     map[string]string{},
	}
	for _, row := range table.Rows[1:] {
		outlet := cell(row, outletIdx)
		number := cell(row, numberIdx)
		if util.IsBlank(outlet) || util.IsBlank(number) {
			m.SkippedBlanks++
			continue
		}
		m.ByOutlet[outlet] = number
	}
	if len(m.ByOutlet) == 0 {
		return m, errors.New("no mappings loaded from " + table.Name)
	}
	return m, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
