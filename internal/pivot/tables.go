// Package pivot implements the table store, field selection and the
// recomputation pipeline that turns loaded tables into a pivot result.
package pivot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/tabcube/internal/model"
)

// Tables holds the loaded tables keyed by name, in load order.
type Tables struct {
	order  []string
	tables map[string]model.Table
}

// NewTables returns an empty store.
func NewTables() *Tables {
	return &Tables{tables: map[string]model.Table{}}
}

// Load inserts or replaces a table. A replaced table keeps its position.
func (s *Tables) Load(name string, table model.Table) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: table name is empty", ErrInvalidTable)
	}
	if _, ok := s.tables[name]; !ok {
		s.order = append(s.order, name)
	}
	s.tables[name] = table
	return nil
}

// Remove deletes a table. It reports whether the name was loaded; removing
// an absent name is a no-op.
func (s *Tables) Remove(name string) bool {
	if _, ok := s.tables[name]; !ok {
		return false
	}
	delete(s.tables, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns a loaded table.
func (s *Tables) Get(name string) (model.Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Names returns table names in load order.
func (s *Tables) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of loaded tables.
func (s *Tables) Len() int {
	return len(s.order)
}

// Columns returns the sorted union of column names across all tables.
func (s *Tables) Columns() []string {
	seen := map[string]struct{}{}
	for _, t := range s.tables {
		for _, c := range t.Columns() {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// HasColumn reports whether any loaded table has the column.
func (s *Tables) HasColumn(column string) bool {
	for _, t := range s.tables {
		if t.Has(column) {
			return true
		}
	}
	return false
}
