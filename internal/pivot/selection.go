package pivot

import (
	"fmt"

	"github.com/verte-zerg/tabcube/internal/model"
)

// Selection holds the role assignments and the join configuration.
type Selection struct {
	rows    []string
	values  []string
	filters []string

	leftKey  string
	rightKey string
	kind     model.JoinKind
}

// NewSelection returns an empty selection with an inner join.
func NewSelection() *Selection {
	return &Selection{kind: model.JoinInner}
}

func (s *Selection) list(role model.Role) (*[]string, error) {
	switch role {
	case model.RoleRow:
		return &s.rows, nil
	case model.RoleValue:
		return &s.values, nil
	case model.RoleFilter:
		return &s.filters, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// Assign appends a column to a role. It reports whether the column was
// added; an already assigned column is left in place.
func (s *Selection) Assign(role model.Role, column string) (bool, error) {
	l, err := s.list(role)
	if err != nil {
		return false, err
	}
	if contains(*l, column) {
		return false, nil
	}
	*l = append(*l, column)
	return true, nil
}

// Unassign removes a column from a role. It reports whether it was present.
func (s *Selection) Unassign(role model.Role, column string) (bool, error) {
	l, err := s.list(role)
	if err != nil {
		return false, err
	}
	for i, c := range *l {
		if c == column {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Fields returns a copy of the columns assigned to a role.
func (s *Selection) Fields(role model.Role) []string {
	l, err := s.list(role)
	if err != nil {
		return nil
	}
	return append([]string(nil), (*l)...)
}

// Has reports whether the column is assigned to the role.
func (s *Selection) Has(role model.Role, column string) bool {
	l, err := s.list(role)
	if err != nil {
		return false
	}
	return contains(*l, column)
}

// Empty reports whether no role has any column.
func (s *Selection) Empty() bool {
	return len(s.rows) == 0 && len(s.values) == 0 && len(s.filters) == 0
}

// SetJoinKey sets one side of the key pair; an empty column clears it.
func (s *Selection) SetJoinKey(side model.JoinSide, column string) error {
	switch side {
	case model.SideLeft:
		s.leftKey = column
	case model.SideRight:
		s.rightKey = column
	default:
		return fmt.Errorf("unknown join side %q", side)
	}
	return nil
}

// JoinKeys returns the left and right key; empty means unset.
func (s *Selection) JoinKeys() (left, right string) {
	return s.leftKey, s.rightKey
}

// JoinReady reports whether both key sides are set.
func (s *Selection) JoinReady() bool {
	return s.leftKey != "" && s.rightKey != ""
}

// SetJoinKind sets the merge strategy.
func (s *Selection) SetJoinKind(kind model.JoinKind) {
	s.kind = kind
}

// JoinKind returns the merge strategy.
func (s *Selection) JoinKind() model.JoinKind {
	return s.kind
}

func contains(list []string, v string) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}
