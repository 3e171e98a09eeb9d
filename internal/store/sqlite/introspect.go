package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sheetql/sheetql/internal/schema"
)

const listTablesSQL = "SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"

// Introspect reads back every user table in the store: its literal create
// statement, row count, and column descriptors in declaration order.
func (s *Store) Introspect(ctx context.Context) ([]schema.TableMetadata, error) {
	rows, err := s.db.QueryContext(ctx, listTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []schema.TableMetadata
	for rows.Next() {
		var name string
		var createSQL sql.NullString
		if err := rows.Scan(&name, &createSQL); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, schema.TableMetadata{Name: name, CreateSQL: createSQL.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	for i := range tables {
		columns, err := s.tableColumns(ctx, tables[i].Name)
		if err != nil {
			return nil, err
		}
		tables[i].Columns = columns

		count, err := s.tableRowCount(ctx, tables[i].Name)
		if err != nil {
			return nil, err
		}
		tables[i].RowCount = count
	}
	return tables, nil
}

// TableInfo returns the metadata for a single table, or ErrTableNotFound
// when the store has no table of that name.
func (s *Store) TableInfo(ctx context.Context, table string) (schema.TableMetadata, error) {
	var name string
	var createSQL sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).
		Scan(&name, &createSQL)
	if err == sql.ErrNoRows {
		return schema.TableMetadata{}, fmt.Errorf("table %q: %w", table, ErrTableNotFound)
	}
	if err != nil {
		return schema.TableMetadata{}, fmt.Errorf("lookup table %q: %w", table, err)
	}

	meta := schema.TableMetadata{Name: name, CreateSQL: createSQL.String}
	if meta.Columns, err = s.tableColumns(ctx, name); err != nil {
		return schema.TableMetadata{}, err
	}
	if meta.RowCount, err = s.tableRowCount(ctx, name); err != nil {
		return schema.TableMetadata{}, err
	}
	return meta, nil
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]schema.ColumnDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("table_info %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []schema.ColumnDescriptor
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", table, err)
		}
		column := schema.ColumnDescriptor{
			Position:   cid,
			Name:       name,
			Type:       colType,
			NotNull:    notNull != 0,
			PrimaryKey: pk != 0,
		}
		if dfltValue.Valid {
			value := dfltValue.String
			column.Default = &value
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %q: %w", table, err)
	}
	return columns, nil
}

func (s *Store) tableRowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count rows of %q: %w", table, err)
	}
	return count, nil
}
