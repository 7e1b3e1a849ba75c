package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/tabcube/internal/model"
)

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		{"Region", "Amount", nil, "Day"},
		{"East", 10, "x", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"West", 2.5},
	})

	tables, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "sales.xlsx", tables[0].Name)

	tbl := tables[0].Table
	assert.Equal(t, []string{"Region", "Amount", "Unnamed: 2", "Day"}, tbl.Columns())
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, model.KindNumber, tbl.Cell("Amount", 0).Kind())
	assert.Equal(t, "2.5", tbl.Cell("Amount", 1).String())
	assert.Equal(t, "x", tbl.Cell("Unnamed: 2", 0).String())
	assert.Equal(t, "2024-01-05 00:00:00", tbl.Cell("Day", 0).String())
	assert.True(t, tbl.Cell("Day", 1).IsMissing())
}

func TestReadCSV(t *testing.T) {
	in := "\ufeffid,name,id\n1,Ann,7\n2,,\n3,Bob\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "id.1"}, tbl.Columns())
	require.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, model.KindNumber, tbl.Cell("id", 0).Kind())
	assert.True(t, tbl.Cell("name", 1).IsMissing())
	assert.True(t, tbl.Cell("id.1", 2).IsMissing())
}

func TestReadCSVEmpty(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumColumns())
}

func TestParseCell(t *testing.T) {
	assert.True(t, ParseCell("  ").IsMissing())
	assert.True(t, ParseCell("NaN").IsMissing())
	assert.Equal(t, model.KindNumber, ParseCell(" 1e3 ").Kind())
	assert.Equal(t, model.KindText, ParseCell("1,000").Kind())
	assert.Equal(t, "East", ParseCell("East").String())
}

func TestLooksNumeric(t *testing.T) {
	for _, s := range []string{"1,000.00", "12%", "($5)", "1.2E+03"} {
		assert.True(t, looksNumeric(s), s)
	}
	for _, s := range []string{"01-05-24", "1/5/24 0:00", "", " - "} {
		assert.False(t, looksNumeric(s), s)
	}
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load(context.Background(), "data.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSplitTableRef(t *testing.T) {
	file, table := splitTableRef("data/shop.db:orders")
	assert.Equal(t, "data/shop.db", file)
	assert.Equal(t, "orders", table)

	file, table = splitTableRef("C:/x.csv")
	assert.Equal(t, "C:/x.csv", file)
	assert.Equal(t, "", table)
}

func TestExportRoundTripXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.xlsx")
	res := model.Result{
		Columns: []string{"Region", "Amount"},
		Rows:    [][]string{{"East", "1,234.50"}, {"West"}},
	}
	require.NoError(t, Export(context.Background(), path, res, ExportOptions{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())
	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Region", "Amount"}, {"East", "1,234.50"}, {"West"}}, rows)
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.csv")
	res := model.Result{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "x,y"}}}
	require.NoError(t, Export(context.Background(), path, res, ExportOptions{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"x,y\"\n", string(data))
}

func TestExportSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	res := model.Result{Columns: []string{"Region", "Amount"}, Rows: [][]string{{"East", "10"}}}
	require.NoError(t, Export(context.Background(), path+":pivot", res, ExportOptions{}))
	require.NoError(t, Export(context.Background(), path, res, ExportOptions{Table: "again"}))

	tables, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "out.db:again", tables[0].Name)
	assert.Equal(t, "out.db:pivot", tables[1].Name)
	assert.Equal(t, "East", tables[1].Table.Cell("Region", 0).String())

	only, err := Load(context.Background(), path+":pivot")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, model.KindText, only[0].Table.Cell("Amount", 0).Kind())
}

func TestLoadKeepsSameStemSourcesApart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	csvPath := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Region,Amount\nEast,1\n"), 0o644))
	xlsxPath := filepath.Join(dir, "sales.xlsx")
	writeWorkbook(t, xlsxPath, [][]interface{}{{"Region", "Amount"}, {"West", 2}})

	res := model.Result{Columns: []string{"Region"}, Rows: [][]string{{"North"}}}
	require.NoError(t, Export(ctx, filepath.Join(dir, "one.db")+":sales", res, ExportOptions{}))
	require.NoError(t, Export(ctx, filepath.Join(dir, "two.db")+":sales", res, ExportOptions{}))

	var names []string
	for _, path := range []string{csvPath, xlsxPath, filepath.Join(dir, "one.db"), filepath.Join(dir, "two.db") + ":sales"} {
		tables, err := Load(ctx, path)
		require.NoError(t, err)
		for _, nt := range tables {
			names = append(names, nt.Name)
		}
	}
	assert.Equal(t, []string{"sales.csv", "sales.xlsx", "one.db:sales", "two.db:sales"}, names)
}

func TestLoadMissingDatabase(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}

func TestExportNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")
	err := Export(context.Background(), path, model.Result{Columns: []string{"No data"}}, ExportOptions{})
	assert.ErrorIs(t, err, ErrNothingToExport)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNextResultPath(t *testing.T) {
	dir := t.TempDir()
	first, err := NextResultPath(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result_1.xlsx"), first)

	require.NoError(t, os.WriteFile(first, []byte("x"), 0o644))
	second, err := NextResultPath(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result_2.xlsx"), second)
}
