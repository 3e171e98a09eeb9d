package observability

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTraceMiddlewareGeneratesAndPropagatesID(t *testing.T) {
	var seen string
	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if seen == "" {
		t.Fatal("trace id missing from request context")
	}
	if got := rr.Header().Get("X-Trace-ID"); got != seen {
		t.Fatalf("response trace header = %q, want %q", got, seen)
	}
}

func TestTraceMiddlewareKeepsIncomingID(t *testing.T) {
	handler := TraceMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Trace-ID"); got != "trace-123" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestMetricsPathCollapsesFileSegments(t *testing.T) {
	cases := map[string]string{
		"/v1/files/q3_sales.csv": "/v1/files/{name}",
		"/v1/convert/sales.csv":  "/v1/convert/{name}",
		"/v1/sql/sales":          "/v1/sql/{name}",
		"/v1/generate/sales":     "/v1/generate/{name}",
		"/v1/files":              "/v1/files",
		"/v1/health":             "/v1/health",
	}
	for path, want := range cases {
		if got := metricsPath(path); got != want {
			t.Fatalf("metricsPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/files", nil))

	if !strings.Contains(buf.String(), `"status":418`) {
		t.Fatalf("log line missing status: %s", buf.String())
	}
}
