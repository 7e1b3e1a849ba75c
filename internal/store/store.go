// Package store reads tables from and writes results to SQLite files.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/verte-zerg/tabcube/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. directory: %s", dir)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "sql.Open failed. path: %s", path)
	}
	if err := db.Ping(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on open failure.
			_ = cerr
		}
		return nil, errors.Wrapf(err, "ping failed. path: %s", path)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListTables returns the user tables of the database, sorted by name.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list tables failed")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan table name failed")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list tables failed")
	}
	return names, nil
}

// ReadTable loads every row of a table. Integer and real columns become
// numbers, NULL becomes missing, everything else text.
func (s *Store) ReadTable(ctx context.Context, name string) (model.Table, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s`, quoteIdent(name)))
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "read table failed. table: %s", name)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "read columns failed. table: %s", name)
	}
	var data [][]model.Value
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.Table{}, errors.Wrapf(err, "scan row failed. table: %s", name)
		}
		row := make([]model.Value, len(columns))
		for i, v := range raw {
			row[i] = toValue(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return model.Table{}, errors.Wrapf(err, "read table failed. table: %s", name)
	}
	t, err := model.NewTableFromRows(columns, data)
	if err != nil {
		return model.Table{}, errors.Wrapf(err, "invalid table. table: %s", name)
	}
	return t, nil
}

// WriteResult replaces table name with the formatted result. All columns
// are stored as TEXT.
func (s *Store) WriteResult(ctx context.Context, name string, res model.Result) (err error) {
	if strings.TrimSpace(name) == "" {
		return errors.New("table name is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction failed")
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(name))); err != nil {
		return errors.Wrapf(err, "drop table failed. table: %s", name)
	}
	defs := make([]string, len(res.Columns))
	placeholders := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		defs[i] = quoteIdent(c) + " TEXT"
		placeholders[i] = "?"
	}
	create := fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(name), strings.Join(defs, ", "))
	if _, err = tx.ExecContext(ctx, create); err != nil {
		return errors.Wrapf(err, "create table failed. table: %s", name)
	}

	if len(res.Rows) > 0 {
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s VALUES (%s)`, quoteIdent(name), strings.Join(placeholders, ", ")))
		if err != nil {
			return errors.Wrap(err, "prepare insert failed")
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		args := make([]any, len(res.Columns))
		for _, row := range res.Rows {
			for i := range args {
				args[i] = ""
				if i < len(row) {
					args[i] = row[i]
				}
			}
			if _, err = stmt.ExecContext(ctx, args...); err != nil {
				return errors.Wrap(err, "insert row failed")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit failed")
	}
	return nil
}

func toValue(v any) model.Value {
	switch x := v.(type) {
	case nil:
		return model.Missing()
	case int64:
		return model.Number(float64(x))
	case float64:
		return model.Number(x)
	case bool:
		if x {
			return model.Number(1)
		}
		return model.Number(0)
	case []byte:
		return model.Text(string(x))
	case string:
		return model.Text(x)
	case time.Time:
		return model.Text(x.Format("2006-01-02 15:04:05"))
	default:
		return model.Text(fmt.Sprint(x))
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
