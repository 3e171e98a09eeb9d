package schema

import (
	"fmt"
	"strings"
	"time"
)

// RenderDocument serializes a Document into the plaintext metadata format.
// The shape is a compatibility surface consumed by humans and by the prompt
// builder; keep it stable.
func RenderDocument(doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "source: %s\n", doc.Source)
	fmt.Fprintf(&b, "created: %s\n", doc.Created.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "tables: %d\n", len(doc.Tables))
	fmt.Fprintf(&b, "total_rows: %d\n", doc.TotalRows())

	for _, table := range doc.Tables {
		fmt.Fprintf(&b, "\n[table] %s\n", table.Name)
		fmt.Fprintf(&b, "rows: %d\n", table.RowCount)
		fmt.Fprintf(&b, "create_sql: %s\n", table.CreateSQL)
		fmt.Fprintf(&b, "columns: %d\n", len(table.Columns))
		b.WriteString("column_details:\n")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "- %s: %s, pk=%t, notnull=%t, default=%s\n",
				col.Name, col.Type, col.PrimaryKey, col.NotNull, defaultText(col.Default))
		}
	}
	return b.String()
}

// RenderFallbackMetadata produces the minimal metadata used when no document
// file exists and the schema has to be reconstructed from live introspection.
// Unlike the full document it carries a single column_names line, which is
// the shape the prompt builder's column parse understands.
func RenderFallbackMetadata(source string, rowCount int64, columns []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "source: %s\n", source)
	fmt.Fprintf(&b, "rows: %d\n", rowCount)
	fmt.Fprintf(&b, "columns: %d\n", len(columns))
	fmt.Fprintf(&b, "column_names: %s\n", strings.Join(columns, ", "))
	return b.String()
}

func defaultText(value *string) string {
	if value == nil {
		return "NULL"
	}
	return *value
}
