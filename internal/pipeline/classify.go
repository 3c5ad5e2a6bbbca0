package pipeline

import "posimport/internal/util"

type RejectReason string

const (
	Admitted          RejectReason = ""
	RejectShortRow    RejectReason = "short_row"
	RejectBlankID     RejectReason = "blank_identity"
	RejectNumericOnly RejectReason = "numeric_footer"
)

// Classifier decides per row, without cross-row state, whether a row is data.
type Classifier struct {
	MinCells  int
	OutletCol int
	Identity  [][]int
}

func NewClassifier(p Profile, cols ColumnMap) Classifier {
	c := Classifier{MinCells: p.MinCells, OutletCol: cols.Index(FieldOutletName)}
	for _, group := range p.Identity {
		idx := []int{}
		for _, f := range group {
			if cols.Has(f) {
				idx = append(idx, cols[f])
			}
		}
		c.Identity = append(c.Identity, idx)
	}
	return c
}

func (c Classifier) Classify(row []string) RejectReason {
	if len(row) < c.MinCells {
		return RejectShortRow
	}
	for _, group := range c.Identity {
		if allBlank(row, group) {
			return RejectBlankID
		}
	}
	// Totals rows repeat a count or sum where the outlet name should be.
	if c.OutletCol >= 0 && util.IsNumeric(pickCell(row, c.OutletCol)) {
		return RejectNumericOnly
	}
	return Admitted
}

func (c Classifier) Admit(row []string) bool {
	return c.Classify(row) == Admitted
}

func allBlank(row []string, cols []int) bool {
	for _, idx := range cols {
		if !util.IsBlank(pickCell(row, idx)) {
			return false
		}
	}
	return true
}
