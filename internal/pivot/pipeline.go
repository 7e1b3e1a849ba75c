package pivot

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/tabcube/internal/format"
	"github.com/verte-zerg/tabcube/internal/model"
)

// NoDataColumn is the placeholder header of an empty result.
const NoDataColumn = "No data"

// State is everything a recomputation reads.
type State struct {
	Tables    *Tables
	Selection *Selection
	Filters   map[string]string
	Op        model.AggOp
	Mode      model.FormatMode
}

// Outcome is a successful recomputation.
type Outcome struct {
	Result   model.Result
	Warnings []string
	// Empty is set when the no-data guard produced the result.
	Empty bool
	// Joined is the row count after the join step, before filtering.
	Joined int
}

// EmptyResult is the placeholder shown when there is nothing to compute.
func EmptyResult() model.Result {
	return model.Result{Columns: []string{NoDataColumn}, Rows: [][]string{}}
}

// Compute runs the pipeline: join, filter, project, group, render.
func Compute(st State) (Outcome, error) {
	if st.Tables == nil || st.Tables.Len() == 0 || st.Selection == nil || st.Selection.Empty() {
		return Outcome{Result: EmptyResult(), Empty: true}, nil
	}

	var warnings []string
	names := st.Tables.Names()
	first, _ := st.Tables.Get(names[0])
	data := frameFromTable(first)
	joined := []string{names[0]}

	leftKey, rightKey := st.Selection.JoinKeys()
	for _, name := range names[1:] {
		if !st.Selection.JoinReady() {
			warnings = append(warnings, fmt.Sprintf("cannot join table %q: join keys not configured", name))
			continue
		}
		t, _ := st.Tables.Get(name)
		merged, err := join(data, frameFromTable(t), joinSpec{
			leftKey:   leftKey,
			rightKey:  rightKey,
			kind:      st.Selection.JoinKind(),
			leftName:  strings.Join(joined, " + "),
			rightName: name,
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to join tables: %w", err)
		}
		data = merged
		joined = append(joined, name)
	}
	joinedRows := len(data.rows)

	filterFields := st.Selection.Fields(model.RoleFilter)
	for _, column := range filterFields {
		want := st.Filters[column]
		if want == "" {
			continue
		}
		idx, ok := data.index[column]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("filter %q ignored: column not in the joined data", column))
			continue
		}
		kept := data.rows[:0:0]
		for _, row := range data.rows {
			if row[idx].String() == want {
				kept = append(kept, row)
			}
		}
		data = newFrame(data.columns, kept)
	}

	rowFields := st.Selection.Fields(model.RoleRow)
	valueFields := st.Selection.Fields(model.RoleValue)
	data = project(data, dedupe(rowFields, valueFields, filterFields))

	if len(rowFields) > 0 && len(valueFields) > 0 {
		grouped, err := groupBy(data, rowFields, valueFields, st.Op)
		if err != nil {
			return Outcome{}, err
		}
		data = grouped
	}

	result := model.Result{
		Columns: append([]string(nil), data.columns...),
		Rows:    make([][]string, len(data.rows)),
	}
	for i, row := range data.rows {
		result.Rows[i] = format.RenderRow(row, st.Mode)
	}
	return Outcome{Result: result, Warnings: warnings, Joined: joinedRows}, nil
}

// project keeps the wanted columns that exist, in order. With none left it
// falls back to the first column.
func project(f *frame, wanted []string) *frame {
	var cols []string
	var idx []int
	for _, c := range wanted {
		if i, ok := f.index[c]; ok {
			cols = append(cols, c)
			idx = append(idx, i)
		}
	}
	if len(cols) == 0 {
		if len(f.columns) == 0 {
			return newFrame(nil, make([][]model.Value, len(f.rows)))
		}
		cols = []string{f.columns[0]}
		idx = []int{0}
	}
	rows := make([][]model.Value, len(f.rows))
	for r, row := range f.rows {
		out := make([]model.Value, len(idx))
		for i, j := range idx {
			out[i] = row[j]
		}
		rows[r] = out
	}
	return newFrame(cols, rows)
}

func dedupe(lists ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, l := range lists {
		for _, c := range l {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
