package pivot

import (
	"fmt"

	"github.com/verte-zerg/tabcube/internal/model"
)

const (
	leftSuffix  = "_x"
	rightSuffix = "_y"
)

// frame is the row-major working set the pipeline transforms.
type frame struct {
	columns []string
	index   map[string]int
	rows    [][]model.Value
}

func newFrame(columns []string, rows [][]model.Value) *frame {
	f := &frame{columns: columns, rows: rows, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if _, ok := f.index[c]; !ok {
			f.index[c] = i
		}
	}
	return f
}

func frameFromTable(t model.Table) *frame {
	columns := t.Columns()
	rows := make([][]model.Value, t.NumRows())
	for r := range rows {
		row := make([]model.Value, len(columns))
		for c, name := range columns {
			row[c] = t.Cell(name, r)
		}
		rows[r] = row
	}
	return newFrame(columns, rows)
}

func (f *frame) has(column string) bool {
	_, ok := f.index[column]
	return ok
}

// joinSpec describes one merge step.
type joinSpec struct {
	leftKey   string
	rightKey  string
	kind      model.JoinKind
	leftName  string
	rightName string
}

// join merges right into left, matching left[leftKey] against
// right[rightKey] by canonical string. Missing keys never match.
func join(left, right *frame, on joinSpec) (*frame, error) {
	li, ok := left.index[on.leftKey]
	if !ok {
		return nil, fmt.Errorf("%w: column %q not in table %q", ErrJoinKeyMissing, on.leftKey, on.leftName)
	}
	ri, ok := right.index[on.rightKey]
	if !ok {
		return nil, fmt.Errorf("%w: column %q not in table %q", ErrJoinKeyMissing, on.rightKey, on.rightName)
	}

	sharedKey := on.leftKey == on.rightKey
	overlap := map[string]bool{}
	for _, c := range left.columns {
		if right.has(c) && !(sharedKey && c == on.leftKey) {
			overlap[c] = true
		}
	}

	columns := make([]string, 0, len(left.columns)+len(right.columns))
	for _, c := range left.columns {
		if overlap[c] {
			c += leftSuffix
		}
		columns = append(columns, c)
	}
	rightCols := make([]int, 0, len(right.columns))
	for i, c := range right.columns {
		if sharedKey && i == ri {
			continue
		}
		if overlap[c] {
			c += rightSuffix
		}
		columns = append(columns, c)
		rightCols = append(rightCols, i)
	}

	emit := func(out [][]model.Value, l, r []model.Value) [][]model.Value {
		row := make([]model.Value, 0, len(columns))
		if l != nil {
			row = append(row, l...)
		} else {
			for i := range left.columns {
				if sharedKey && i == li {
					row = append(row, r[ri])
					continue
				}
				row = append(row, model.Missing())
			}
		}
		for _, i := range rightCols {
			if r != nil {
				row = append(row, r[i])
			} else {
				row = append(row, model.Missing())
			}
		}
		return append(out, row)
	}

	var out [][]model.Value
	switch on.kind {
	case model.JoinRight:
		lookup := buildLookup(left.rows, li)
		for _, r := range right.rows {
			matches := lookupRows(lookup, r[ri])
			if len(matches) == 0 {
				out = emit(out, nil, r)
				continue
			}
			for _, m := range matches {
				out = emit(out, left.rows[m], r)
			}
		}
	case model.JoinInner, model.JoinLeft, model.JoinOuter:
		lookup := buildLookup(right.rows, ri)
		matched := make([]bool, len(right.rows))
		for _, l := range left.rows {
			matches := lookupRows(lookup, l[li])
			if len(matches) == 0 {
				if on.kind != model.JoinInner {
					out = emit(out, l, nil)
				}
				continue
			}
			for _, m := range matches {
				matched[m] = true
				out = emit(out, l, right.rows[m])
			}
		}
		if on.kind == model.JoinOuter {
			for i, r := range right.rows {
				if !matched[i] {
					out = emit(out, nil, r)
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported join kind %q", on.kind)
	}
	return newFrame(columns, out), nil
}

func buildLookup(rows [][]model.Value, col int) map[string][]int {
	lookup := make(map[string][]int, len(rows))
	for i, row := range rows {
		v := row[col]
		if v.IsMissing() {
			continue
		}
		k := v.String()
		lookup[k] = append(lookup[k], i)
	}
	return lookup
}

func lookupRows(lookup map[string][]int, v model.Value) []int {
	if v.IsMissing() {
		return nil
	}
	return lookup[v.String()]
}
