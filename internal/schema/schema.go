// Package schema carries the reconciled shape of a materialized store: legal
// table identifiers, per-table column descriptors, and the plaintext metadata
// document written alongside every store.
package schema

import "time"

// ColumnDescriptor mirrors one row of SQLite's table_info pragma. It is
// captured once after materialization and not updated until the table is
// recreated.
type ColumnDescriptor struct {
	Position   int
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PrimaryKey bool
}

// TableMetadata is the introspected description of one materialized table,
// including the literal creation statement reported by the store.
type TableMetadata struct {
	Name      string
	CreateSQL string
	RowCount  int64
	Columns   []ColumnDescriptor
}

// Document is the full metadata for one materialization run. Its rendered
// form is persisted next to the store under the same base name.
type Document struct {
	Source  string
	Created time.Time
	Tables  []TableMetadata
}

// TotalRows sums row counts over all tables in the document.
func (d Document) TotalRows() int64 {
	var total int64
	for _, table := range d.Tables {
		total += table.RowCount
	}
	return total
}
