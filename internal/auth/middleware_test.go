package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticValidatorParsesRoles(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:analytics:query_runner|workspace_writer, k2:viewer:query_runner")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}

	identity, ok := validator.Validate(t.Context(), "k1")
	if !ok {
		t.Fatal("expected k1 to validate")
	}
	if identity.Name != "analytics" {
		t.Fatalf("Name = %q", identity.Name)
	}
	if !identity.HasRole("query_runner") || !identity.HasRole("workspace_writer") {
		t.Fatalf("roles = %v", identity.Roles)
	}
	if identity.HasRole("admin") {
		t.Fatal("unexpected admin role")
	}

	if _, ok := validator.Validate(t.Context(), "nope"); ok {
		t.Fatal("unknown key validated")
	}
}

func TestStaticValidatorRejectsMalformedSpec(t *testing.T) {
	cases := []string{"k1", "k1:name", "k1::role", ":name:role", "k1:name:"}
	for _, spec := range cases {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("spec %q: expected error", spec)
		}
	}
}

func TestMiddlewareRejectsMissingAndInvalidKeys(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:client:query_runner")
	if err != nil {
		t.Fatalf("validator setup: %v", err)
	}

	var gotIdentity Identity
	handler := Middleware(nil, validator)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = IdentityFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/files", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/files", nil)
	req.Header.Set("X-API-Key", "wrong")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("invalid key status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/files", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("valid key status = %d", rr.Code)
	}
	if gotIdentity.Name != "client" {
		t.Fatalf("identity = %+v", gotIdentity)
	}
}
