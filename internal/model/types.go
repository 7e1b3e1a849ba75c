// Package model defines shared data structures.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	// KindMissing marks an absent cell.
	KindMissing Kind = iota
	// KindNumber marks a numeric cell.
	KindNumber
	// KindText marks a text cell.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "missing"
	}
}

// Value is a single table cell.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Missing returns the absent value.
func Missing() Value {
	return Value{}
}

// Number wraps a float. NaN is stored as Missing.
func Number(v float64) Value {
	if math.IsNaN(v) {
		return Value{}
	}
	return Value{kind: KindNumber, num: v}
}

// Text wraps a string.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// IsMissing reports whether the cell is absent.
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// Num returns the numeric payload and whether the value is a Number.
func (v Value) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Str returns the text payload and whether the value is Text.
func (v Value) Str() (string, bool) {
	return v.text, v.kind == KindText
}

// Float coerces the value to a number. Text is accepted when it parses as a
// float after trimming spaces.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String is the canonical stringification shared by filters, joins and
// grouping. Missing renders as "", numbers in their shortest decimal form.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// Table is a rectangular set of named columns.
type Table struct {
	columns []string
	index   map[string]int
	data    [][]Value
	rows    int
}

// NewTable builds a table from column names and column-major data.
func NewTable(columns []string, data [][]Value) (Table, error) {
	if len(columns) != len(data) {
		return Table{}, fmt.Errorf("table has %d column names but %d columns", len(columns), len(data))
	}
	t := Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		data:    make([][]Value, len(data)),
	}
	for i, name := range columns {
		if _, dup := t.index[name]; dup {
			return Table{}, fmt.Errorf("duplicate column %q", name)
		}
		t.index[name] = i
		if i == 0 {
			t.rows = len(data[i])
		} else if len(data[i]) != t.rows {
			return Table{}, fmt.Errorf("column %q has %d rows, expected %d", name, len(data[i]), t.rows)
		}
		t.data[i] = append([]Value(nil), data[i]...)
	}
	return t, nil
}

// NewTableFromRows builds a table from row-major data. Short rows are padded
// with Missing; long rows are an error.
func NewTableFromRows(columns []string, rows [][]Value) (Table, error) {
	data := make([][]Value, len(columns))
	for i := range data {
		data[i] = make([]Value, len(rows))
	}
	for r, row := range rows {
		if len(row) > len(columns) {
			return Table{}, fmt.Errorf("row %d has %d cells, expected at most %d", r+1, len(row), len(columns))
		}
		for c, v := range row {
			data[c][r] = v
		}
	}
	return NewTable(columns, data)
}

// Columns returns the ordered column names.
func (t Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// NumRows returns the row count.
func (t Table) NumRows() int {
	return t.rows
}

// NumColumns returns the column count.
func (t Table) NumColumns() int {
	return len(t.columns)
}

// Has reports whether the table has the named column.
func (t Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Column returns the values of a column. The slice must not be modified.
func (t Table) Column(name string) ([]Value, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.data[i], true
}

// Cell returns the value at row r of the named column.
func (t Table) Cell(column string, r int) Value {
	i, ok := t.index[column]
	if !ok || r < 0 || r >= t.rows {
		return Missing()
	}
	return t.data[i][r]
}

// Role is the purpose a column is assigned to in the pivot.
type Role string

const (
	RoleRow    Role = "row"
	RoleValue  Role = "value"
	RoleFilter Role = "filter"
)

// Roles lists the roles in display order.
var Roles = []Role{RoleRow, RoleValue, RoleFilter}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleRow, RoleValue, RoleFilter:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q (use row, value or filter)", s)
}

// JoinSide picks one half of the join key pair.
type JoinSide string

const (
	SideLeft  JoinSide = "left"
	SideRight JoinSide = "right"
)

// JoinKind is the merge strategy between two tables.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
	JoinOuter JoinKind = "outer"
)

// JoinKinds lists the supported kinds.
var JoinKinds = []JoinKind{JoinInner, JoinLeft, JoinRight, JoinOuter}

// ParseJoinKind validates a join kind name.
func ParseJoinKind(s string) (JoinKind, error) {
	switch k := JoinKind(strings.ToLower(strings.TrimSpace(s))); k {
	case JoinInner, JoinLeft, JoinRight, JoinOuter:
		return k, nil
	}
	return "", fmt.Errorf("unknown join kind %q (use inner, left, right or outer)", s)
}

// AggOp is the aggregation applied to every value column.
type AggOp string

const (
	OpSum     AggOp = "sum"
	OpCount   AggOp = "count"
	OpMax     AggOp = "max"
	OpMin     AggOp = "min"
	OpAverage AggOp = "average"
)

// AggOps lists the supported operators.
var AggOps = []AggOp{OpSum, OpCount, OpMax, OpMin, OpAverage}

// ParseAggOp validates an operator name. "avg" and "mean" are accepted
// for average.
func ParseAggOp(s string) (AggOp, error) {
	switch op := AggOp(strings.ToLower(strings.TrimSpace(s))); op {
	case OpSum, OpCount, OpMax, OpMin, OpAverage:
		return op, nil
	case "avg", "mean":
		return OpAverage, nil
	}
	return "", fmt.Errorf("unknown operation %q (use sum, count, max, min or average)", s)
}

// FormatMode is the display rule applied to result cells.
type FormatMode string

const (
	FormatNumber  FormatMode = "number"
	FormatInteger FormatMode = "integer"
	FormatDate    FormatMode = "date"
	FormatTime    FormatMode = "time"
)

// FormatModes lists the supported modes.
var FormatModes = []FormatMode{FormatNumber, FormatInteger, FormatDate, FormatTime}

// ParseFormatMode validates a format mode name.
func ParseFormatMode(s string) (FormatMode, error) {
	switch m := FormatMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FormatNumber, FormatInteger, FormatDate, FormatTime:
		return m, nil
	case "plain-number":
		return FormatNumber, nil
	}
	return "", fmt.Errorf("unknown format %q (use number, integer, date or time)", s)
}

// Result is the formatted output grid.
type Result struct {
	Columns []string
	Rows    [][]string
}

// Clone returns a deep copy.
func (r Result) Clone() Result {
	out := Result{Columns: append([]string(nil), r.Columns...)}
	if r.Rows != nil {
		out.Rows = make([][]string, len(r.Rows))
		for i, row := range r.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}
