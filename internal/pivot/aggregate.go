package pivot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/verte-zerg/tabcube/internal/model"
)

const groupKeySep = "\x1f"

// accumulator folds the values of one value column within one group.
type accumulator struct {
	sum   decimal.Decimal
	count int
	max   float64
	min   float64
}

func (a *accumulator) add(v float64) {
	a.sum = a.sum.Add(decimal.NewFromFloat(v))
	if a.count == 0 || v > a.max {
		a.max = v
	}
	if a.count == 0 || v < a.min {
		a.min = v
	}
	a.count++
}

func (a *accumulator) result(op model.AggOp) model.Value {
	switch op {
	case model.OpCount:
		return model.Number(float64(a.count))
	case model.OpSum:
		f, _ := a.sum.Float64()
		return model.Number(f)
	}
	if a.count == 0 {
		return model.Missing()
	}
	switch op {
	case model.OpMax:
		return model.Number(a.max)
	case model.OpMin:
		return model.Number(a.min)
	case model.OpAverage:
		f, _ := a.sum.Div(decimal.NewFromInt(int64(a.count))).Float64()
		return model.Number(f)
	}
	return model.Missing()
}

type group struct {
	key  []model.Value
	accs []accumulator
}

// groupBy groups f by rowFields and aggregates every value field with op.
// The output columns are rowFields followed by the aggregated value fields.
func groupBy(f *frame, rowFields, valueFields []string, op model.AggOp) (*frame, error) {
	keyIdx := make([]int, len(rowFields))
	for i, name := range rowFields {
		idx, ok := f.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: row field %q is not in the joined data", ErrGrouping, name)
		}
		keyIdx[i] = idx
		if err := checkComparable(f, idx, name); err != nil {
			return nil, err
		}
	}

	var aggNames []string
	var aggIdx []int
	for _, name := range valueFields {
		idx, ok := f.index[name]
		if !ok || contains(rowFields, name) || contains(aggNames, name) {
			continue
		}
		aggNames = append(aggNames, name)
		aggIdx = append(aggIdx, idx)
	}

	groups := map[string]*group{}
	var order []*group
	var b strings.Builder
	for _, row := range f.rows {
		b.Reset()
		missingKey := false
		for i, idx := range keyIdx {
			v := row[idx]
			if v.IsMissing() {
				missingKey = true
				break
			}
			if i > 0 {
				b.WriteString(groupKeySep)
			}
			b.WriteString(v.String())
		}
		if missingKey {
			continue
		}
		g, ok := groups[b.String()]
		if !ok {
			key := make([]model.Value, len(keyIdx))
			for i, idx := range keyIdx {
				key[i] = row[idx]
			}
			g = &group{key: key, accs: make([]accumulator, len(aggIdx))}
			groups[b.String()] = g
			order = append(order, g)
		}
		for i, idx := range aggIdx {
			v := row[idx]
			if v.IsMissing() {
				continue
			}
			if op == model.OpCount {
				g.accs[i].count++
				continue
			}
			n, ok := v.Float()
			if !ok {
				return nil, fmt.Errorf("%w: cannot apply %s to column %q (value %q)", ErrAggregationType, op, aggNames[i], v.String())
			}
			g.accs[i].add(n)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return lessKey(order[i].key, order[j].key)
	})

	columns := append(append([]string(nil), rowFields...), aggNames...)
	rows := make([][]model.Value, 0, len(order))
	for _, g := range order {
		row := make([]model.Value, 0, len(columns))
		row = append(row, g.key...)
		for i := range g.accs {
			row = append(row, g.accs[i].result(op))
		}
		rows = append(rows, row)
	}
	return newFrame(columns, rows), nil
}

// checkComparable rejects group columns that mix numbers and text, since
// their keys have no defined order.
func checkComparable(f *frame, idx int, name string) error {
	var numbers, texts bool
	for _, row := range f.rows {
		switch row[idx].Kind() {
		case model.KindNumber:
			numbers = true
		case model.KindText:
			texts = true
		}
		if numbers && texts {
			return fmt.Errorf("%w: column %q mixes numbers and text", ErrGrouping, name)
		}
	}
	return nil
}

func lessKey(a, b []model.Value) bool {
	for i := range a {
		x, xok := a[i].Num()
		y, yok := b[i].Num()
		if xok && yok {
			if x != y {
				return x < y
			}
			continue
		}
		xs, ys := a[i].String(), b[i].String()
		if xs != ys {
			return xs < ys
		}
	}
	return false
}
