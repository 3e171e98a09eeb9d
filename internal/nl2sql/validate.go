package nl2sql

import (
	"errors"
	"regexp"
	"strings"
)

var forbiddenPattern = regexp.MustCompile(`(?i)\b(drop|delete|insert|update|alter|create|attach|detach|pragma)\b`)

var (
	// ErrNotSelect means the statement does not begin with the SELECT keyword.
	ErrNotSelect = errors.New("statement is not a SELECT")

	// ErrForbiddenKeyword means the statement contains a mutating or
	// transactional-escape keyword somewhere in its text.
	ErrForbiddenKeyword = errors.New("statement contains a forbidden keyword")

	// ErrTableNotReferenced means the target table name appears nowhere in
	// the statement, neither bare nor quoted.
	ErrTableNotReferenced = errors.New("statement does not reference the target table")
)

// ValidateSQL applies the textual safety policy to a candidate statement.
// It returns nil when every rule passes and the first failing rule's error
// otherwise. This is a heuristic check on the statement text, not a semantic
// guarantee; execution independently re-checks the leading keyword.
func ValidateSQL(sql, tableName string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" || !selectPattern.MatchString(trimmed) {
		return ErrNotSelect
	}
	if forbiddenPattern.MatchString(trimmed) {
		return ErrForbiddenKeyword
	}
	if !referencesTable(trimmed, tableName) {
		return ErrTableNotReferenced
	}
	return nil
}

// referencesTable reports whether the statement names the target table,
// bare or quoted. The bare form must stand on word boundaries so a table
// named "t" is not satisfied by "other_table".
func referencesTable(sql, tableName string) bool {
	bare := regexp.MustCompile(`\b` + regexp.QuoteMeta(tableName) + `\b`)
	return bare.MatchString(sql) ||
		strings.Contains(sql, `"`+tableName+`"`) ||
		strings.Contains(sql, "'"+tableName+"'")
}
