package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medifile/medifile/internal/platform/auth"
)

func runAudited(t *testing.T, path string, recorder AuditRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-abc")
	ctx := auth.WithActor(req.Context(), uuid.New(), auth.RoleDoctor)
	c.SetRequest(req.WithContext(ctx))

	mw := Audit(zerolog.Nop(), recorder)
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAudit_RecordsAPIAccess(t *testing.T) {
	var got *AuditEntry
	runAudited(t, "/api/v1/appointments", AuditRecorderFunc(func(e AuditEntry) { got = &e }))

	if got == nil {
		t.Fatal("expected an audit entry")
	}
	if got.Resource != "appointments" {
		t.Errorf("expected resource appointments, got %q", got.Resource)
	}
	if got.Action != "create" {
		t.Errorf("expected action create, got %q", got.Action)
	}
	if got.UserRole != auth.RoleDoctor {
		t.Errorf("expected doctor role, got %q", got.UserRole)
	}
	if got.RequestID != "req-abc" {
		t.Errorf("expected request_id req-abc, got %q", got.RequestID)
	}
	if got.StatusCode != http.StatusCreated {
		t.Errorf("expected status 201, got %d", got.StatusCode)
	}
	if got.UserID == "" {
		t.Error("expected user id to be set")
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	called := false
	runAudited(t, "/healthz", AuditRecorderFunc(func(AuditEntry) { called = true }))
	if called {
		t.Error("health endpoint should not be audited")
	}
}

func TestResourceFromPath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/patients":     "patients",
		"/api/v1/patients/123": "patients",
		"/api/v1/":             "unknown",
	}
	for path, want := range cases {
		if got := resourceFromPath(path); got != want {
			t.Errorf("%s: expected %q, got %q", path, want, got)
		}
	}
}

func TestMethodToAction(t *testing.T) {
	if methodToAction(http.MethodDelete) != "delete" {
		t.Error("expected delete")
	}
	if methodToAction(http.MethodGet) != "read" {
		t.Error("expected read")
	}
}
