package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sheetql/sheetql/internal/nl2sql"
	"github.com/sheetql/sheetql/internal/observability"
	"github.com/sheetql/sheetql/internal/schema"
	"github.com/sheetql/sheetql/internal/workspace"
)

type generateRequest struct {
	Table   string `json:"table"`
	Request string `json:"request"`
}

// handleGenerate asks the generative model for a SELECT over one table of a
// converted store. Safety rejections are not errors: the response is always
// the structured outcome with ok=false and the raw model text, so callers
// can show the user what the model produced and why it was refused.
func handleGenerate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workspace == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WORKSPACE_NOT_CONFIGURED", "workspace is not configured", false, nil)
		return
	}
	if deps.Model == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AI_NOT_CONFIGURED", "generative model is not configured", false, nil)
		return
	}
	if err := requireRole(r, "query_runner"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	base, storePath, ok := resolveStore(deps, w, r)
	if !ok {
		return
	}

	var request generateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return
	}
	request.Table = strings.TrimSpace(request.Table)
	if request.Table == "" {
		request.Table = "data"
	}
	if strings.TrimSpace(request.Request) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "REQUEST_REQUIRED", "request field is required", false, nil)
		return
	}

	metadata, ok := loadMetadata(deps, w, r, base, storePath, request.Table)
	if !ok {
		return
	}

	observability.ObserveGenerate()
	outcome := nl2sql.Generate(r.Context(), deps.Model, request.Table, metadata, request.Request)
	if !outcome.OK {
		observability.ObserveGenerateRejection(outcome.Reason)
	}
	writeJSON(w, http.StatusOK, outcome)
}

// loadMetadata prefers the metadata document written at conversion time.
// When the document is gone (retention may have pruned it) a minimal one is
// reconstructed from live store introspection.
func loadMetadata(deps Dependencies, w http.ResponseWriter, r *http.Request, base, storePath, table string) (nl2sql.Metadata, bool) {
	document, err := deps.Workspace.ReadMetadata(base)
	if err == nil {
		return nl2sql.PlaintextMetadata(document), true
	}
	if !errors.Is(err, workspace.ErrNotFound) {
		writeError(r.Context(), w, http.StatusInternalServerError, "METADATA_READ_FAILED", "failed to read metadata document", true, map[string]any{"details": err.Error()})
		return nl2sql.Metadata{}, false
	}

	store, err := deps.OpenStore(storePath)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "STORE_OPEN_FAILED", "failed to open relational store", true, map[string]any{"db": base, "details": err.Error()})
		return nl2sql.Metadata{}, false
	}
	defer func() { _ = store.Close() }()

	info, err := store.TableInfo(r.Context(), table)
	if err != nil {
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", err.Error(), false, map[string]any{"db": base, "table": table})
		return nl2sql.Metadata{}, false
	}

	columns := make([]string, len(info.Columns))
	for i, column := range info.Columns {
		columns[i] = column.Name
	}
	fallback := schema.RenderFallbackMetadata(base+".db", info.RowCount, columns)
	return nl2sql.PlaintextMetadata(fallback), true
}
