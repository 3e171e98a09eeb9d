// Package nl2sql turns natural-language requests into validated read-only
// SQLite SELECT statements. The validation here is a textual policy layer,
// not a SQL parser; the store's execution path independently re-checks the
// leading keyword before anything runs.
package nl2sql

import "context"

// Metadata is the schema context handed to the prompt builder: either the
// plaintext document persisted next to a store, or a structured column list
// when the caller already holds one.
type Metadata struct {
	document   string
	columns    []string
	structured bool
}

// PlaintextMetadata wraps a metadata document read from disk.
func PlaintextMetadata(document string) Metadata {
	return Metadata{document: document}
}

// StructuredMetadata wraps an explicit column-name list.
func StructuredMetadata(columns []string) Metadata {
	return Metadata{columns: columns, structured: true}
}

// Client is the generative-model collaborator. Complete sends one system
// instruction and one user instruction and returns the raw model text.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Outcome is the result of one generation attempt. Extraction and validation
// failures are outcomes, not errors: OK is false, Raw carries the model
// output, and Error carries a human-readable reason so the caller can show
// the user what the model produced and why it was refused.
type Outcome struct {
	SQL   string `json:"sql"`
	Raw   string `json:"raw"`
	OK    bool   `json:"ok"`
	Error string `json:"error"`

	// Reason is a short machine label for metrics; not serialized.
	Reason string `json:"-"`
}
