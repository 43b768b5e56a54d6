package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func doRequest(t *testing.T, role string, mw echo.MiddlewareFunc) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != "" {
		c.SetRequest(req.WithContext(WithActor(req.Context(), uuid.New(), role)))
	}
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return handler(c)
}

func TestRequireRole_Allows(t *testing.T) {
	if err := doRequest(t, RoleDoctor, RequireRole(RoleDoctor)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	if err := doRequest(t, RoleAdmin, RequireRole(RoleDoctor)); err != nil {
		t.Fatalf("admin should pass any role check: %v", err)
	}
}

func TestRequireRole_Denies(t *testing.T) {
	err := doRequest(t, RolePatient, RequireRole(RoleDoctor, RoleNurse))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_Unauthenticated(t *testing.T) {
	err := doRequest(t, "", RequireRole(RolePatient))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleDoctor, RolePatient, RoleNurse} {
		if !ValidRole(r) {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if ValidRole("janitor") {
		t.Error("unexpected valid role")
	}
}
