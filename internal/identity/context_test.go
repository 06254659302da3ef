package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"doctor", RoleDoctor},
		{" DOCTOR ", RoleDoctor},
		{"patient", RolePatient},
		{"", RoleNone},
		{"admin", RoleNone},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Fatalf("ParseRole(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{Role: RolePatient, Email: "jane@x.com"})
	id, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if id.Role != RolePatient || id.Email != "jane@x.com" {
		t.Fatalf("identity = %+v", id)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context must not report an identity")
	}
}

func TestMiddlewareReadsHeaders(t *testing.T) {
	var got Identity
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Role", "doctor")
	req.Header.Set("X-User-Email", "dr@clinic.com")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got.Role != RoleDoctor || got.Email != "dr@clinic.com" {
		t.Fatalf("identity = %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	protected := RequireRole(RoleDoctor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{Role: RolePatient}))
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for wrong role", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{Role: RoleDoctor}))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
