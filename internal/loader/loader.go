// Package loader reads source tables from spreadsheet, CSV and SQLite files
// and writes formatted results back out.
package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/tabcube/internal/model"
	"github.com/verte-zerg/tabcube/internal/store"
)

// NamedTable is a table together with the name it is registered under.
type NamedTable struct {
	Name  string
	Table model.Table
}

// ErrUnsupportedFormat is returned for file extensions the loader cannot read
// or write.
var ErrUnsupportedFormat = errors.New("unsupported file format")

const isoDateTime = "2006-01-02 15:04:05"

// Load reads path and returns the tables it contains. Spreadsheets and CSV
// files yield one table named after the file ("sales.xlsx"); SQLite files
// yield every table, or only the one named after a colon, registered as
// "data.db:sales".
func Load(ctx context.Context, path string) ([]NamedTable, error) {
	file, table := splitTableRef(path)
	switch ext(file) {
	case ".xlsx", ".xlsm":
		t, err := LoadXLSX(file)
		if err != nil {
			return nil, err
		}
		return []NamedTable{{Name: filepath.Base(file), Table: t}}, nil
	case ".csv":
		t, err := LoadCSV(file)
		if err != nil {
			return nil, err
		}
		return []NamedTable{{Name: filepath.Base(file), Table: t}}, nil
	case ".db", ".sqlite", ".sqlite3":
		return loadSQLite(ctx, file, table)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "path: %s", path)
	}
}

// LoadXLSX reads the first worksheet of a workbook. The first row holds the
// column names. Cells displayed as dates are converted to ISO date-time text.
func LoadXLSX(path string) (model.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "open workbook failed. path: %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.Table{}, errors.Errorf("workbook has no sheets. path: %s", path)
	}
	sheet := sheets[0]
	shown, err := f.GetRows(sheet)
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "read sheet failed. sheet: %s", sheet)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "read raw sheet failed. sheet: %s", sheet)
	}

	cells := make([][]model.Value, len(raw))
	for r, rawRow := range raw {
		row := make([]model.Value, len(rawRow))
		for c, rv := range rawRow {
			sv := rv
			if r < len(shown) && c < len(shown[r]) {
				sv = shown[r][c]
			}
			row[c] = xlsxCell(rv, sv)
		}
		cells[r] = row
	}
	t, err := buildTable(cells)
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "invalid sheet. path: %s", path)
	}
	return t, nil
}

// LoadCSV reads a comma separated file whose first record holds the column
// names.
func LoadCSV(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "open csv failed. path: %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()
	t, err := ReadCSV(f)
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "read csv failed. path: %s", path)
	}
	return t, nil
}

// ReadCSV parses CSV records from r into a table.
func ReadCSV(r io.Reader) (model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return model.Table{}, err
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	cells := make([][]model.Value, len(records))
	for i, rec := range records {
		row := make([]model.Value, len(rec))
		for j, s := range rec {
			if i == 0 {
				row[j] = model.Text(s)
				continue
			}
			row[j] = ParseCell(s)
		}
		cells[i] = row
	}
	return buildTable(cells)
}

// ParseCell infers a cell value from text: blank is missing, anything that
// parses as a float is a number, the rest is text.
func ParseCell(s string) model.Value {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return model.Missing()
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return model.Number(f)
	}
	return model.Text(s)
}

func xlsxCell(raw, shown string) model.Value {
	v := ParseCell(raw)
	if v.Kind() != model.KindNumber || shown == raw || looksNumeric(shown) {
		return v
	}
	if !strings.ContainsAny(shown, "0123456789") {
		return v
	}
	serial, _ := v.Num()
	tm, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return model.Text(tm.Format(isoDateTime))
}

// looksNumeric reports whether a displayed value is a decorated number such
// as "1,000.00", "12%" or "($5)".
func looksNumeric(s string) bool {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '%', '$', '€', '£', '¥', '(', ')', ' ':
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return false
	}
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}

// buildTable turns a header row plus data rows into a table. Blank headers
// become "Unnamed: N" and repeated headers get a ".N" suffix.
func buildTable(cells [][]model.Value) (model.Table, error) {
	if len(cells) == 0 {
		return model.NewTable(nil, nil)
	}
	width := 0
	for _, row := range cells {
		if len(row) > width {
			width = len(row)
		}
	}
	header := cells[0]
	names := make([]string, width)
	used := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i].String())
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			for n := 1; ; n++ {
				if candidate := fmt.Sprintf("%s.%d", name, n); !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		names[i] = name
	}
	return model.NewTableFromRows(names, cells[1:])
}

func loadSQLite(ctx context.Context, path, only string) ([]NamedTable, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "database not found. path: %s", path)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	names := []string{only}
	if only == "" {
		names, err = st.ListTables(ctx)
		if err != nil {
			return nil, err
		}
	}
	out := make([]NamedTable, 0, len(names))
	for _, name := range names {
		t, err := st.ReadTable(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedTable{Name: filepath.Base(path) + ":" + name, Table: t})
	}
	return out, nil
}

// splitTableRef separates "file.db:table" into its parts. Paths without a
// SQLite extension before the colon are returned untouched.
func splitTableRef(path string) (string, string) {
	idx := strings.LastIndex(path, ":")
	if idx <= 0 {
		return path, ""
	}
	switch ext(path[:idx]) {
	case ".db", ".sqlite", ".sqlite3":
		return path[:idx], path[idx+1:]
	}
	return path, ""
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
