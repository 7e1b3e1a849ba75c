package pivot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tabcube/internal/model"
)

func TestTablesColumnsIsSortedUnion(t *testing.T) {
	s := NewTables()
	assert.Empty(t, s.Columns())

	require.NoError(t, s.Load("a", mustTable(t, []string{"id", "x"})))
	require.NoError(t, s.Load("b", mustTable(t, []string{"y", "id"})))
	assert.Equal(t, []string{"id", "x", "y"}, s.Columns())

	s.Remove("a")
	assert.Equal(t, []string{"id", "y"}, s.Columns())
}

func TestTablesReplaceKeepsOrder(t *testing.T) {
	s := NewTables()
	require.NoError(t, s.Load("a", mustTable(t, []string{"x"})))
	require.NoError(t, s.Load("b", mustTable(t, []string{"y"})))
	require.NoError(t, s.Load("a", mustTable(t, []string{"z"})))

	assert.Equal(t, []string{"a", "b"}, s.Names())
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, []string{"z"}, got.Columns())
	assert.Error(t, s.Load(" ", mustTable(t, []string{"x"})))
}

func TestDistinctValues(t *testing.T) {
	s := NewTables()
	require.NoError(t, s.Load("a", mustTable(t, []string{"id", "city"},
		row(num(2), text("Lisbon")),
		row(num(1), model.Missing()),
		row(num(1.0), text("Porto")),
	)))
	require.NoError(t, s.Load("b", mustTable(t, []string{"id"},
		row(num(3)),
		row(text("10")),
	)))

	assert.Equal(t, []string{"1", "10", "2", "3"}, s.DistinctValues("id"))
	assert.Equal(t, []string{"Lisbon", "Porto"}, s.DistinctValues("city"))
	assert.Empty(t, s.DistinctValues("nope"))
}

func TestJoinSuffixesOverlappingColumns(t *testing.T) {
	left := frameFromTable(mustTable(t, []string{"id", "v"}, row(num(1), text("l"))))
	right := frameFromTable(mustTable(t, []string{"id", "v"}, row(num(1), text("r"))))

	out, err := join(left, right, joinSpec{leftKey: "id", rightKey: "id", kind: model.JoinInner})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "v_x", "v_y"}, out.columns)
	require.Len(t, out.rows, 1)
	assert.Equal(t, "r", out.rows[0][2].String())
}

func TestJoinKeepsBothKeysWhenNamesDiffer(t *testing.T) {
	left := frameFromTable(mustTable(t, []string{"code", "x"},
		row(text("A"), num(1)),
		row(model.Missing(), num(2)),
	))
	right := frameFromTable(mustTable(t, []string{"ref", "y"},
		row(text("A"), num(3)),
		row(model.Missing(), num(4)),
	))

	out, err := join(left, right, joinSpec{leftKey: "code", rightKey: "ref", kind: model.JoinOuter})
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "x", "ref", "y"}, out.columns)
	// Missing keys never match, so both unkeyed rows survive unpaired.
	require.Len(t, out.rows, 3)
	assert.True(t, out.rows[1][2].IsMissing())
	assert.True(t, out.rows[2][0].IsMissing())
	assert.Equal(t, "4", out.rows[2][3].String())
}

func TestJoinMultipleMatches(t *testing.T) {
	left := frameFromTable(mustTable(t, []string{"k"}, row(text("a")), row(text("b"))))
	right := frameFromTable(mustTable(t, []string{"k", "n"},
		row(text("a"), num(1)),
		row(text("a"), num(2)),
	))

	out, err := join(left, right, joinSpec{leftKey: "k", rightKey: "k", kind: model.JoinLeft})
	require.NoError(t, err)
	require.Len(t, out.rows, 3)
	assert.Equal(t, "1", out.rows[0][1].String())
	assert.Equal(t, "2", out.rows[1][1].String())
	assert.True(t, out.rows[2][1].IsMissing())
}
