package pivot

import "sort"

// DistinctValues returns the sorted distinct canonical strings of a column
// across every loaded table that has it. Missing cells are left out since an
// empty selection means "no filter".
func (s *Tables) DistinctValues(column string) []string {
	seen := map[string]struct{}{}
	for _, name := range s.order {
		values, ok := s.tables[name].Column(column)
		if !ok {
			continue
		}
		for _, v := range values {
			if v.IsMissing() {
				continue
			}
			seen[v.String()] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
