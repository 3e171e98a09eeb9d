package nl2sql

import (
	"regexp"
	"strings"
)

// columnNamesPattern matches the single-line column listing emitted by the
// fallback metadata renderer. The full metadata document lists columns as
// column_details bullets instead, which this pattern deliberately does not
// match; see internal/schema.
var columnNamesPattern = regexp.MustCompile(`(?i)column_names:\s*(.*)`)

const promptPreamble = "You are an assistant that writes precise SQLite SELECT statements.\n" +
	"The user will provide a search request describing what data they want.\n" +
	"Constraints:\n" +
	"- Output ONLY a single valid SQLite `SELECT` statement and nothing else.\n" +
	"- Do not include any surrounding explanation, markdown, or code fences.\n" +
	"- The statement must be read-only (SELECT). No INSERT/UPDATE/DELETE/PRAGMA/ATTACH.\n" +
	"- Use the table name exactly as provided.\n" +
	"- Use SQLite-compatible syntax.\n" +
	"- Prefer explicit column lists (not SELECT *), unless user requests all columns.\n"

// BuildPrompt assembles the user instruction for the model: a fixed preamble
// stating the output contract, the raw metadata verbatim, a best-effort
// parsed column list, and the verbatim user request. The output is
// byte-identical for identical inputs.
func BuildPrompt(tableName string, metadata Metadata, userRequest string) string {
	metaText := metadata.text()
	columns := metadata.parsedColumns()

	columnsText := "(no column list available)"
	if len(columns) > 0 {
		bullets := make([]string, len(columns))
		for i, column := range columns {
			bullets[i] = "- " + column
		}
		columnsText = strings.Join(bullets, "\n")
	}

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("Here is the table metadata (raw):\n")
	b.WriteString(metaText)
	b.WriteString("\n\nParsed columns:\n")
	b.WriteString(columnsText)
	b.WriteString("\n\nUser request: ")
	b.WriteString(userRequest)
	b.WriteString("\n\nReturn a single SELECT statement that answers the user request.")
	return b.String()
}

func (m Metadata) text() string {
	if m.structured {
		return "column_names: " + strings.Join(m.columns, ", ")
	}
	return m.document
}

func (m Metadata) parsedColumns() []string {
	if m.structured {
		return m.columns
	}
	match := columnNamesPattern.FindStringSubmatch(m.document)
	if match == nil {
		return nil
	}
	var columns []string
	for _, part := range strings.Split(match[1], ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			columns = append(columns, trimmed)
		}
	}
	return columns
}
