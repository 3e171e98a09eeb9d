package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sheetql/sheetql/internal/auth"
	"github.com/sheetql/sheetql/internal/workspace"
)

func handleUpload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workspace == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WORKSPACE_NOT_CONFIGURED", "workspace is not configured", false, nil)
		return
	}
	if err := requireRole(r, "workspace_writer"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "multipart field \"file\" is required", false, map[string]any{"details": err.Error()})
		return
	}
	defer func() { _ = file.Close() }()

	stored, size, err := deps.Workspace.SaveUpload(header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrUnsupportedExtension):
			writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_EXTENSION", err.Error(), false, map[string]any{"filename": header.Filename})
		case errors.Is(err, workspace.ErrTooLarge):
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", err.Error(), false, nil)
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "UPLOAD_FAILED", "failed to store upload", true, map[string]any{"details": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"file": stored, "size": size})
}

func handleListFiles(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workspace == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WORKSPACE_NOT_CONFIGURED", "workspace is not configured", false, nil)
		return
	}

	files, err := deps.Workspace.List()
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "LIST_FAILED", "failed to list workspace files", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func handleDownloadFile(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workspace == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "WORKSPACE_NOT_CONFIGURED", "workspace is not configured", false, nil)
		return
	}

	name := strings.TrimSpace(r.PathValue("name"))
	path, err := deps.Workspace.Resolve(name)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "FILE_NOT_FOUND", err.Error(), false, map[string]any{"file": name})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "DOWNLOAD_FAILED", "failed to resolve file", true, map[string]any{"details": err.Error()})
		return
	}
	http.ServeFile(w, r, path)
}

func identityName(r *http.Request) (string, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Name == "" {
		return "", false
	}
	return identity.Name, true
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
