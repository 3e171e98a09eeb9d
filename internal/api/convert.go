package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sheetql/sheetql/internal/catalog"
	"github.com/sheetql/sheetql/internal/dataset"
	"github.com/sheetql/sheetql/internal/observability"
	"github.com/sheetql/sheetql/internal/schema"
	"github.com/sheetql/sheetql/internal/workspace"
)

type convertResponse struct {
	DB        string   `json:"db"`
	Metadata  string   `json:"metadata"`
	Tables    []string `json:"tables"`
	TotalRows int64    `json:"total_rows"`
}

// handleConvert turns an uploaded source file into a <base>.db store and a
// <base>.txt metadata document. Failures are reported per phase so a caller
// knows which half of the run is missing.
func handleConvert(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workspace == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WORKSPACE_NOT_CONFIGURED", "workspace is not configured", false, nil)
		return
	}
	if err := requireRole(r, "workspace_writer"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	name := strings.TrimSpace(r.PathValue("name"))
	sourcePath, err := deps.Workspace.Resolve(name)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "FILE_NOT_FOUND", err.Error(), false, map[string]any{"file": name})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "CONVERT_FAILED", "failed to resolve source file", true, map[string]any{"details": err.Error()})
		return
	}

	start := time.Now()
	sourceFile := filepath.Base(sourcePath)
	base := workspace.BaseName(sourceFile)

	sources, err := dataset.ParseFile(sourcePath)
	if err != nil {
		observability.ObserveConversionFailure("read-source")
		code := "INVALID_SOURCE"
		if errors.Is(err, dataset.ErrUnsupportedFormat) {
			code = "UNSUPPORTED_FORMAT"
		}
		writeError(r.Context(), w, http.StatusBadRequest, code, err.Error(), false, map[string]any{"phase": "read-source", "file": sourceFile})
		return
	}
	sources = schema.Reconcile(sources)

	store, err := deps.OpenStore(deps.Workspace.StorePath(base))
	if err != nil {
		observability.ObserveConversionFailure("write-store")
		writeError(r.Context(), w, http.StatusInternalServerError, "STORE_OPEN_FAILED", "failed to open relational store", true, map[string]any{"phase": "write-store", "details": err.Error()})
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.Materialize(r.Context(), sources); err != nil {
		observability.ObserveConversionFailure("write-store")
		writeError(r.Context(), w, http.StatusInternalServerError, "MATERIALIZE_FAILED", "failed to materialize tables", true, map[string]any{"phase": "write-store", "details": err.Error()})
		return
	}

	tables, err := store.Introspect(r.Context())
	if err != nil {
		observability.ObserveConversionFailure("gather-schema")
		writeError(r.Context(), w, http.StatusInternalServerError, "INTROSPECT_FAILED", "failed to gather table schemas", true, map[string]any{"phase": "gather-schema", "details": err.Error()})
		return
	}

	doc := schema.Document{
		Source:  sourceFile,
		Created: deps.Clock().UTC(),
		Tables:  tables,
	}
	if err := deps.Workspace.WriteMetadata(base, schema.RenderDocument(doc)); err != nil {
		observability.ObserveConversionFailure("write-metadata")
		writeError(r.Context(), w, http.StatusInternalServerError, "METADATA_WRITE_FAILED", "store was written but metadata could not be persisted", true, map[string]any{"phase": "write-metadata", "details": err.Error()})
		return
	}

	totalRows := doc.TotalRows()
	observability.ObserveConversion(len(tables), totalRows, time.Since(start))

	recordRun(deps, r, sourceFile, base, len(tables), totalRows)
	archiveRun(deps, r, base)

	names := make([]string, len(tables))
	for i, table := range tables {
		names[i] = table.Name
	}
	writeJSON(w, http.StatusCreated, convertResponse{
		DB:        base + ".db",
		Metadata:  base + ".txt",
		Tables:    names,
		TotalRows: totalRows,
	})
}

// recordRun writes the conversion to the ingest-run catalog when one is
// configured. Catalog trouble is logged, not surfaced: the conversion itself
// already succeeded.
func recordRun(deps Dependencies, r *http.Request, sourceFile, base string, tables int, totalRows int64) {
	if deps.Catalog == nil {
		return
	}
	createdBy := "anonymous"
	if identity, ok := identityName(r); ok {
		createdBy = identity
	}
	if _, err := deps.Catalog.RecordRun(r.Context(), catalog.RecordRunInput{
		SourceFile: sourceFile,
		BaseName:   base,
		Tables:     tables,
		TotalRows:  totalRows,
		CreatedBy:  createdBy,
	}); err != nil && deps.Logger != nil {
		deps.Logger.ErrorContext(r.Context(), "failed to record ingest run",
			"base", base, "error", err)
	}
}

// archiveRun copies the conversion outputs to the object store when one is
// configured, on the same best-effort basis as the catalog.
func archiveRun(deps Dependencies, r *http.Request, base string) {
	if deps.Archiver == nil {
		return
	}
	err := deps.Archiver.ArchiveRun(r.Context(), base,
		deps.Workspace.StorePath(base), deps.Workspace.MetadataPath(base))
	if err != nil && deps.Logger != nil {
		deps.Logger.ErrorContext(r.Context(), "failed to archive conversion outputs",
			"base", base, "error", err)
	}
}
