package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheetql/sheetql/internal/catalog"
	"github.com/sheetql/sheetql/internal/config"
	"github.com/sheetql/sheetql/internal/dataset"
	"github.com/sheetql/sheetql/internal/nl2sql"
	"github.com/sheetql/sheetql/internal/observability"
	"github.com/sheetql/sheetql/internal/schema"
	"github.com/sheetql/sheetql/internal/storage"
	"github.com/sheetql/sheetql/internal/store/sqlite"
	"github.com/sheetql/sheetql/internal/workspace"
)

type ReadinessCheck func(ctx context.Context) error

// RelationalStore is the slice of the sqlite store the handlers use; tests
// substitute fakes.
type RelationalStore interface {
	Materialize(ctx context.Context, sources []dataset.Source) error
	Introspect(ctx context.Context) ([]schema.TableMetadata, error)
	TableInfo(ctx context.Context, table string) (schema.TableMetadata, error)
	Execute(ctx context.Context, query string) (sqlite.Result, error)
	Close() error
}

// StoreOpener opens the relational store at path, creating it when absent.
type StoreOpener func(path string) (RelationalStore, error)

// OpenSQLiteStore is the production StoreOpener.
func OpenSQLiteStore(path string) (RelationalStore, error) {
	return sqlite.Open(path)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Workspace         *workspace.Workspace
	OpenStore         StoreOpener
	Catalog           catalog.Recorder
	Archiver          *storage.Archiver
	Sweeper           *workspace.Sweeper
	Model             nl2sql.Client
	Clock             func() time.Time
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.OpenStore == nil {
		deps.OpenStore = OpenSQLiteStore
	}
	if deps.Model != nil {
		deps.Model = timedModel{inner: deps.Model}
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/upload", func(w http.ResponseWriter, r *http.Request) {
		handleUpload(deps, w, r)
	})
	protected.HandleFunc("GET /v1/files", func(w http.ResponseWriter, r *http.Request) {
		handleListFiles(deps, w, r)
	})
	protected.HandleFunc("GET /v1/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		handleDownloadFile(deps, w, r)
	})
	protected.HandleFunc("POST /v1/convert/{name}", func(w http.ResponseWriter, r *http.Request) {
		handleConvert(deps, w, r)
	})
	protected.HandleFunc("POST /v1/sql/{db}", func(w http.ResponseWriter, r *http.Request) {
		handleSQL(deps, w, r)
	})
	protected.HandleFunc("POST /v1/generate/{db}", func(w http.ResponseWriter, r *http.Request) {
		handleGenerate(deps, w, r)
	})
	protected.HandleFunc("GET /v1/runs", func(w http.ResponseWriter, r *http.Request) {
		handleListRuns(deps, w, r)
	})
	protected.HandleFunc("POST /v1/maintenance/retention", func(w http.ResponseWriter, r *http.Request) {
		handleRetentionRun(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/upload", protectedHandler)
	mux.Handle("GET /v1/files", protectedHandler)
	mux.Handle("GET /v1/files/{name}", protectedHandler)
	mux.Handle("POST /v1/convert/{name}", protectedHandler)
	mux.Handle("POST /v1/sql/{db}", protectedHandler)
	mux.Handle("POST /v1/generate/{db}", protectedHandler)
	mux.Handle("GET /v1/runs", protectedHandler)
	mux.Handle("POST /v1/maintenance/retention", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// timedModel records call latency around the generative-model client.
type timedModel struct {
	inner nl2sql.Client
}

func (t timedModel) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	text, err := t.inner.Complete(ctx, system, user)
	observability.ObserveModelCall(time.Since(start))
	return text, err
}

func CheckWorkspace(ws *workspace.Workspace) ReadinessCheck {
	return func(_ context.Context) error {
		if ws == nil {
			return errors.New("workspace is not configured")
		}
		if _, err := ws.List(); err != nil {
			return err
		}
		return nil
	}
}

func CheckCatalog(recorder catalog.Recorder) ReadinessCheck {
	return func(ctx context.Context) error {
		if recorder == nil {
			return nil
		}
		return recorder.HealthCheck(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
