package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/tabcube/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "tabcube.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestReadTableTypes(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	if _, err := st.db.ExecContext(ctx, `CREATE TABLE "my sales" (region TEXT, amount REAL, qty INTEGER, note TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.db.ExecContext(ctx, `INSERT INTO "my sales" VALUES ('East', 2.5, 3, NULL), ('West', NULL, 1, 'x')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	names, err := st.ListTables(ctx)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(names) != 1 || names[0] != "my sales" {
		t.Fatalf("unexpected tables: %v", names)
	}

	tbl, err := st.ReadTable(ctx, "my sales")
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if tbl.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.NumRows())
	}
	if got := tbl.Cell("amount", 0); got.Kind() != model.KindNumber || got.String() != "2.5" {
		t.Fatalf("unexpected amount: %v %q", got.Kind(), got.String())
	}
	if got := tbl.Cell("qty", 1); got.Kind() != model.KindNumber || got.String() != "1" {
		t.Fatalf("unexpected qty: %v %q", got.Kind(), got.String())
	}
	if !tbl.Cell("amount", 1).IsMissing() || !tbl.Cell("note", 0).IsMissing() {
		t.Fatalf("expected NULL cells to be missing")
	}
	if tbl.Cell("region", 1).String() != "West" {
		t.Fatalf("unexpected region: %q", tbl.Cell("region", 1).String())
	}
}

func TestReadTableUnknown(t *testing.T) {
	st := openTemp(t)
	if _, err := st.ReadTable(context.Background(), "nope"); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}

func TestWriteResultReplacesTable(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	first := model.Result{Columns: []string{"a", `b "q"`}, Rows: [][]string{{"1", "2"}, {"3"}}}
	if err := st.WriteResult(ctx, "out", first); err != nil {
		t.Fatalf("write result: %v", err)
	}
	tbl, err := st.ReadTable(ctx, "out")
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if tbl.NumRows() != 2 || tbl.Cell(`b "q"`, 1).String() != "" {
		t.Fatalf("unexpected table: rows=%d", tbl.NumRows())
	}
	if tbl.Cell("a", 0).Kind() != model.KindText {
		t.Fatalf("expected text cells, got %v", tbl.Cell("a", 0).Kind())
	}

	second := model.Result{Columns: []string{"z"}, Rows: [][]string{{"9"}}}
	if err := st.WriteResult(ctx, "out", second); err != nil {
		t.Fatalf("rewrite result: %v", err)
	}
	tbl, err = st.ReadTable(ctx, "out")
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if cols := tbl.Columns(); len(cols) != 1 || cols[0] != "z" || tbl.NumRows() != 1 {
		t.Fatalf("expected replaced table, got %v", cols)
	}
	if err := st.WriteResult(ctx, " ", second); err == nil {
		t.Fatalf("expected blank table name to fail")
	}
}
