package api

import (
	"net/http"
)

func handleRetentionRun(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sweeper == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RETENTION_NOT_CONFIGURED", "retention sweeping is not configured", false, nil)
		return
	}
	if err := requireRole(r, "workspace_writer"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	summary, err := deps.Sweeper.SweepOnce()
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "RETENTION_FAILED", err.Error(), true, map[string]any{"summary": summary})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
