package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func seedSourceFile(t *testing.T, deps Dependencies, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(deps.Workspace.Dir(), name), []byte(content), 0o644); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
}

func convertFile(t *testing.T, handler http.Handler, name string) convertResponse {
	t.Helper()
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/v1/convert/"+name, nil))
	if resp.Code != http.StatusCreated {
		t.Fatalf("convert status = %d body = %s", resp.Code, resp.Body.String())
	}
	var payload convertResponse
	decodeBody(t, resp, &payload)
	return payload
}

func TestConvertCSVWritesStoreAndMetadata(t *testing.T) {
	deps := testDependencies(t)
	deps.Catalog = &fakeRecorder{}
	handler := NewHandler(testConfig(t), deps)

	seedSourceFile(t, deps, "sales.csv", "region,units\nnorth,12\nsouth,7\n")
	payload := convertFile(t, handler, "sales.csv")

	if payload.DB != "sales.db" || payload.Metadata != "sales.txt" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(payload.Tables) != 1 || payload.Tables[0] != "data" {
		t.Fatalf("csv should materialize one table named data, got %v", payload.Tables)
	}
	if payload.TotalRows != 2 {
		t.Fatalf("total rows = %d", payload.TotalRows)
	}

	if _, err := os.Stat(filepath.Join(deps.Workspace.Dir(), "sales.db")); err != nil {
		t.Fatalf("store file missing: %v", err)
	}
	document, err := deps.Workspace.ReadMetadata("sales")
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	for _, want := range []string{"source: sales.csv", "[table] data", "rows: 2", "column_details:"} {
		if !strings.Contains(document, want) {
			t.Fatalf("metadata missing %q:\n%s", want, document)
		}
	}

	recorder := deps.Catalog.(*fakeRecorder)
	if len(recorder.recorded) != 1 || recorder.recorded[0].BaseName != "sales" {
		t.Fatalf("catalog run not recorded: %+v", recorder.recorded)
	}
}

func TestConvertReplacesPriorStore(t *testing.T) {
	deps := testDependencies(t)
	handler := NewHandler(testConfig(t), deps)

	seedSourceFile(t, deps, "sales.csv", "a,b\n1,2\n3,4\n")
	first := convertFile(t, handler, "sales.csv")
	if first.TotalRows != 2 {
		t.Fatalf("first conversion rows = %d", first.TotalRows)
	}

	seedSourceFile(t, deps, "sales.csv", "a\n9\n")
	second := convertFile(t, handler, "sales.csv")
	if second.TotalRows != 1 {
		t.Fatalf("second conversion rows = %d", second.TotalRows)
	}
}

func TestConvertMissingFile(t *testing.T) {
	handler := NewHandler(testConfig(t), testDependencies(t))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/v1/convert/absent.csv", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d", resp.Code)
	}
}

func TestConvertUnsupportedFormat(t *testing.T) {
	deps := testDependencies(t)
	handler := NewHandler(testConfig(t), deps)
	seedSourceFile(t, deps, "legacy.ods", "not really a spreadsheet")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/v1/convert/legacy.ods", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", resp.Code, resp.Body.String())
	}
	var payload map[string]any
	decodeBody(t, resp, &payload)
	if payload["error_code"] != "UNSUPPORTED_FORMAT" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestSQLEndpointRunsSelect(t *testing.T) {
	deps := testDependencies(t)
	handler := NewHandler(testConfig(t), deps)
	seedSourceFile(t, deps, "sales.csv", "region,units\nnorth,12\nsouth,7\n")
	convertFile(t, handler, "sales.csv")

	req := httptest.NewRequest(http.MethodPost, "/v1/sql/sales",
		strings.NewReader(`{"sql":"SELECT region FROM data ORDER BY region"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", resp.Code, resp.Body.String())
	}
	var payload sqlResponse
	decodeBody(t, resp, &payload)
	if len(payload.Columns) != 1 || payload.Columns[0] != "region" {
		t.Fatalf("unexpected columns %v", payload.Columns)
	}
	if len(payload.Rows) != 2 || payload.Rows[0]["region"] != "north" {
		t.Fatalf("unexpected rows %v", payload.Rows)
	}
}

func TestSQLEndpointRefusesMutations(t *testing.T) {
	deps := testDependencies(t)
	handler := NewHandler(testConfig(t), deps)
	seedSourceFile(t, deps, "sales.csv", "a\n1\n")
	convertFile(t, handler, "sales.csv")

	req := httptest.NewRequest(http.MethodPost, "/v1/sql/sales",
		strings.NewReader(`{"sql":"DROP TABLE data"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.Code)
	}
	var payload map[string]any
	decodeBody(t, resp, &payload)
	if payload["error_code"] != "NOT_READ_ONLY" {
		t.Fatalf("unexpected payload %v", payload)
	}
}

func TestSQLEndpointMissingStore(t *testing.T) {
	handler := NewHandler(testConfig(t), testDependencies(t))

	req := httptest.NewRequest(http.MethodPost, "/v1/sql/absent",
		strings.NewReader(`{"sql":"SELECT 1"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d", resp.Code)
	}
}

func TestSQLEndpointRequiresStatement(t *testing.T) {
	deps := testDependencies(t)
	handler := NewHandler(testConfig(t), deps)
	seedSourceFile(t, deps, "sales.csv", "a\n1\n")
	convertFile(t, handler, "sales.csv")

	req := httptest.NewRequest(http.MethodPost, "/v1/sql/sales", strings.NewReader(`{"sql":"  "}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.Code)
	}
	var payload map[string]any
	decodeBody(t, resp, &payload)
	if payload["error_code"] != "SQL_REQUIRED" {
		t.Fatalf("unexpected payload %v", payload)
	}
}
