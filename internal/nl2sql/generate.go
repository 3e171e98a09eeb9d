package nl2sql

import (
	"context"
	"errors"
	"fmt"
)

const systemInstruction = "You generate only a single SQLite SELECT statement based on user instructions and table metadata."

// Rejection reason labels, also used as metric label values.
const (
	ReasonModelFailure = "model_failure"
	ReasonNoStatement  = "no_statement"
	ReasonNotSelect    = "not_select"
	ReasonForbidden    = "forbidden_keyword"
	ReasonTableMissing = "table_missing"
)

// Generate asks the model for a SELECT statement answering userRequest over
// tableName, then extracts and validates the answer. Every failure mode is
// an Outcome with OK=false; Generate itself never returns an error so the
// caller can always show the raw model text alongside the reason.
func Generate(ctx context.Context, client Client, tableName string, metadata Metadata, userRequest string) Outcome {
	prompt := BuildPrompt(tableName, metadata, userRequest)

	raw, err := client.Complete(ctx, systemInstruction, prompt)
	if err != nil {
		return Outcome{
			OK:     false,
			Error:  fmt.Sprintf("model request failed: %v", err),
			Reason: ReasonModelFailure,
		}
	}

	sql, found := ExtractSQL(raw)
	if !found {
		return Outcome{
			Raw:    raw,
			OK:     false,
			Error:  "could not extract SQL from model output",
			Reason: ReasonNoStatement,
		}
	}

	if err := ValidateSQL(sql, tableName); err != nil {
		return Outcome{
			SQL:    sql,
			Raw:    raw,
			OK:     false,
			Error:  fmt.Sprintf("SQL failed validation: %v", err),
			Reason: rejectionReason(err),
		}
	}

	return Outcome{SQL: sql, Raw: raw, OK: true}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNotSelect):
		return ReasonNotSelect
	case errors.Is(err, ErrForbiddenKeyword):
		return ReasonForbidden
	case errors.Is(err, ErrTableNotReferenced):
		return ReasonTableMissing
	default:
		return "unknown"
	}
}
