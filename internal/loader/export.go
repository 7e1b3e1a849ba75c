package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/tabcube/internal/model"
	"github.com/verte-zerg/tabcube/internal/store"
)

// ErrNothingToExport is returned when the result has no data rows.
var ErrNothingToExport = errors.New("nothing to export")

// DefaultSheet names the worksheet results are written to.
const DefaultSheet = "Result"

// ExportOptions tunes where inside the target file a result lands.
type ExportOptions struct {
	// Sheet is the worksheet name for workbooks. Defaults to DefaultSheet.
	Sheet string
	// Table is the SQLite table name. Defaults to the sheet name.
	Table string
}

// Export writes a formatted result to path, choosing the format from the
// extension. An existing file is replaced; for SQLite only the target table
// is.
func Export(ctx context.Context, path string, res model.Result, opts ExportOptions) error {
	if len(res.Columns) == 0 || len(res.Rows) == 0 {
		return ErrNothingToExport
	}
	if opts.Sheet == "" {
		opts.Sheet = DefaultSheet
	}
	file, table := splitTableRef(path)
	if table == "" {
		table = opts.Table
	}
	if table == "" {
		table = opts.Sheet
	}
	if dir := filepath.Dir(file); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "os.MkdirAll failed. directory: %s", dir)
		}
	}

	switch ext(file) {
	case ".xlsx", ".xlsm":
		return writeAtomic(file, func(w io.Writer) error {
			return writeXLSX(w, res, opts.Sheet)
		})
	case ".csv":
		return writeAtomic(file, func(w io.Writer) error {
			return WriteCSV(w, res)
		})
	case ".db", ".sqlite", ".sqlite3":
		st, err := store.Open(file)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				// Best-effort close.
				_ = cerr
			}
		}()
		return st.WriteResult(ctx, table, res)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "path: %s", path)
	}
}

// NextResultPath returns the first dir/result_N.xlsx that does not exist yet,
// counting from 1.
func NextResultPath(dir string) (string, error) {
	for n := 1; ; n++ {
		path := filepath.Join(dir, fmt.Sprintf("result_%d.xlsx", n))
		_, err := os.Stat(path)
		if os.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", errors.Wrapf(err, "stat failed. path: %s", path)
		}
	}
}

// WriteCSV writes the header and rows of res as CSV.
func WriteCSV(w io.Writer, res model.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return errors.Wrap(err, "write csv header failed")
	}
	for _, row := range res.Rows {
		if err := cw.Write(padRow(row, len(res.Columns))); err != nil {
			return errors.Wrap(err, "write csv row failed")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv failed")
}

func writeXLSX(w io.Writer, res model.Result, sheet string) error {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrapf(err, "rename sheet failed. sheet: %s", sheet)
	}

	header := make([]interface{}, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header failed")
	}
	for r, row := range res.Rows {
		cells := padRow(row, len(res.Columns))
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return errors.Wrap(err, "cell name failed")
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrapf(err, "write row failed. row: %d", r+1)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook failed")
	}
	return nil
}

// writeAtomic writes to a temporary file next to path and renames it into
// place.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tabcube-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file failed. path: %s", path)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			if rerr := os.Remove(tmpName); rerr != nil && !os.IsNotExist(rerr) {
				// Best-effort cleanup.
				_ = rerr
			}
		}
	}()
	if err = write(tmp); err != nil {
		if cerr := tmp.Close(); cerr != nil {
			// Best-effort close; the write error wins.
			_ = cerr
		}
		return err
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close temp file failed. path: %s", tmpName)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "rename failed. path: %s", path)
	}
	return nil
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
