package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sheetql/sheetql/internal/dataset"
)

// Materialize writes every source into the store as one table, dropping any
// prior table of the same name first (replace semantics). All tables of a run
// are written inside a single transaction. Sources without any columns are
// skipped: there is no representable table shape for them.
func (s *Store) Materialize(ctx context.Context, sources []dataset.Source) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, source := range sources {
		if len(source.Data.Columns) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(source.Name)); err != nil {
			return fmt.Errorf("drop prior table %q: %w", source.Name, err)
		}
		if _, err := tx.ExecContext(ctx, createTableSQL(source.Name, source.Data)); err != nil {
			return fmt.Errorf("create table %q: %w", source.Name, err)
		}
		if err := insertRows(ctx, tx, source.Name, source.Data); err != nil {
			return fmt.Errorf("insert rows into %q: %w", source.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit store transaction: %w", err)
	}
	return nil
}

func createTableSQL(table string, ds dataset.Dataset) string {
	defs := make([]string, len(ds.Columns))
	for i, column := range ds.Columns {
		defs[i] = quoteIdent(column) + " " + columnType(ds.Rows, i)
	}
	return "CREATE TABLE " + quoteIdent(table) + " (" + strings.Join(defs, ", ") + ")"
}

// columnType picks the narrowest SQLite storage class that fits every
// non-nil value in the column.
func columnType(rows [][]any, index int) string {
	sawInt := false
	sawFloat := false
	for _, row := range rows {
		if index >= len(row) || row[index] == nil {
			continue
		}
		switch row[index].(type) {
		case int64:
			sawInt = true
		case float64:
			sawFloat = true
		case bool:
			sawInt = true
		default:
			return "TEXT"
		}
	}
	switch {
	case sawFloat:
		return "REAL"
	case sawInt:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, ds dataset.Dataset) error {
	if len(ds.Rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ds.Columns)), ", ")
	quoted := make([]string, len(ds.Columns))
	for i, column := range ds.Columns {
		quoted[i] = quoteIdent(column)
	}
	insertSQL := "INSERT INTO " + quoteIdent(table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + placeholders + ")"

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range ds.Rows {
		args := make([]any, len(ds.Columns))
		for c := range ds.Columns {
			if c < len(row) {
				args[c] = row[c]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
