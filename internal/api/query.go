package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sheetql/sheetql/internal/store/sqlite"
	"github.com/sheetql/sheetql/internal/workspace"
)

type sqlRequest struct {
	SQL string `json:"sql"`
}

type sqlResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// handleSQL runs a caller-supplied statement against a converted store. The
// store's execution path only accepts statements that begin with SELECT;
// this endpoint performs no other validation on purpose, the caller owns
// the statement.
func handleSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workspace == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WORKSPACE_NOT_CONFIGURED", "workspace is not configured", false, nil)
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

	var request sqlRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql field is required", false, nil)
		return
	}

	store, err := deps.OpenStore(storePath)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "STORE_OPEN_FAILED", "failed to open relational store", true, map[string]any{"db": base, "details": err.Error()})
		return
	}
	defer func() { _ = store.Close() }()

	result, err := store.Execute(r.Context(), request.SQL)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotReadOnly) {
			writeError(r.Context(), w, http.StatusBadRequest, "NOT_READ_ONLY", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", err.Error(), false, map[string]any{"db": base})
		return
	}
	writeJSON(w, http.StatusOK, sqlResponse{Columns: result.Columns, Rows: result.Rows})
}

// resolveStore maps the {db} path value (with or without a .db suffix) to an
// existing store file in the workspace.
func resolveStore(deps Dependencies, w http.ResponseWriter, r *http.Request) (string, string, bool) {
	name := strings.TrimSpace(r.PathValue("db"))
	base := workspace.BaseName(workspace.SanitizeFilename(name))
	if base == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "DB_REQUIRED", "db path parameter is required", false, nil)
		return "", "", false
	}

	storePath, err := deps.Workspace.Resolve(base + ".db")
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "DB_NOT_FOUND", err.Error(), false, map[string]any{"db": base})
			return "", "", false
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "STORE_RESOLVE_FAILED", "failed to resolve store", true, map[string]any{"details": err.Error()})
		return "", "", false
	}
	return base, storePath, true
}
