package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medifile/medifile/internal/platform/apperr"
)

// Identity is the verified (user, role) pair a validated token resolves to.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// TokenValidator checks a bearer token against the access-token ledger.
type TokenValidator interface {
	Validate(ctx context.Context, tokenValue string) (Identity, error)
}

// TokenAuth returns middleware that requires a valid Bearer token on every
// request and places the resolved identity and client IP in the context.
func TokenAuth(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			ctx := c.Request().Context()
			ident, err := validator.Validate(ctx, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
			}

			ctx = WithActor(ctx, ident.UserID, ident.Role)
			ctx = WithClientIP(ctx, c.RealIP())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuth grants every request admin access. Development only.
func DevAuth() echo.MiddlewareFunc {
	devUser := uuid.New()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithActor(c.Request().Context(), devUser, RoleAdmin)
			ctx = WithClientIP(ctx, c.RealIP())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
