package schema

import (
	"regexp"

	"github.com/sheetql/sheetql/internal/dataset"
)

// FallbackTableName is used when sanitizing a sheet name leaves nothing.
const FallbackTableName = "data"

var tableNameIllegal = regexp.MustCompile(`[^0-9A-Za-z_]+`)

// SanitizeTableName maps an arbitrary sheet name onto a store-legal
// identifier: every run of characters outside [0-9A-Za-z_] collapses to a
// single underscore. Sanitizing an already-legal name is a no-op.
func SanitizeTableName(name string) string {
	sanitized := tableNameIllegal.ReplaceAllString(name, "_")
	if sanitized == "" {
		return FallbackTableName
	}
	return sanitized
}

// Reconcile sanitizes every source name into a table identifier. When two
// sources sanitize to the same identifier, the later one wins and the earlier
// one's data is dropped; this overwrite is deliberate replace semantics, not
// an error. The first occurrence keeps its position in the returned order.
func Reconcile(sources []dataset.Source) []dataset.Source {
	index := make(map[string]int, len(sources))
	reconciled := make([]dataset.Source, 0, len(sources))
	for _, source := range sources {
		name := SanitizeTableName(source.Name)
		if at, exists := index[name]; exists {
			reconciled[at].Data = source.Data
			continue
		}
		index[name] = len(reconciled)
		reconciled = append(reconciled, dataset.Source{Name: name, Data: source.Data})
	}
	return reconciled
}
