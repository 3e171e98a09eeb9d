package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotReadOnly marks statements that are not plain SELECT queries.
	ErrNotReadOnly = errors.New("statement is not a read-only select")

	// ErrTableNotFound marks lookups for tables the store does not hold.
	ErrTableNotFound = errors.New("table not found")
)

// Result carries the outcome of a read-only query. Columns preserves the
// result-set ordering; each row maps column name to value.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// Execute runs a read-only query against the store. The statement must begin
// with SELECT; anything else is refused with ErrNotReadOnly before touching
// the database. This check is intentionally independent of any validation the
// caller may have done.
func (s *Store) Execute(ctx context.Context, query string) (Result, error) {
	trimmed := strings.TrimSpace(query)
	if !hasSelectPrefix(trimmed) {
		return Result{}, fmt.Errorf("%w: %.40q", ErrNotReadOnly, trimmed)
	}

	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return Result{}, fmt.Errorf("run query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, fmt.Errorf("describe result: %w", err)
	}

	result := Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		scans := make([]any, len(columns))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return Result{}, fmt.Errorf("scan result row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate result: %w", err)
	}
	return result, nil
}

func hasSelectPrefix(query string) bool {
	const keyword = "select"
	if len(query) < len(keyword) {
		return false
	}
	return strings.EqualFold(query[:len(keyword)], keyword)
}

// normalizeValue makes driver values JSON-friendly. The sqlite driver hands
// back []byte for TEXT read through the generic scanner; callers want strings.
func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
