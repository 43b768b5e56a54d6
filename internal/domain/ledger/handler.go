package ledger

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medifile/medifile/internal/platform/apperr"
	"github.com/medifile/medifile/internal/platform/auth"
	"github.com/medifile/medifile/pkg/pagination"
)

type Handler struct {
	svc        *Service
	defaultTTL time.Duration
}

func NewHandler(svc *Service, defaultTTL time.Duration) *Handler {
	return &Handler{svc: svc, defaultTTL: defaultTTL}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/tokens", h.IssueToken)
	adminGroup.GET("/audit-logs", h.ListAuditLogs)
	adminGroup.GET("/users/:id/audit-logs", h.ListAuditLogsByUser)

	anyGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse, auth.RolePatient))
	anyGroup.POST("/tokens/validate", h.ValidateToken)
	anyGroup.POST("/tokens/revoke", h.RevokeToken)
}

func (h *Handler) IssueToken(c echo.Context) error {
	var body struct {
		UserID uuid.UUID `json:"user_id"`
		TTL    string    `json:"ttl"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ttl := h.defaultTTL
	if body.TTL != "" {
		parsed, err := time.ParseDuration(body.TTL)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ttl")
		}
		ttl = parsed
	}
	t, err := h.svc.IssueToken(c.Request().Context(), body.UserID, ttl)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) ValidateToken(c echo.Context) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ident, err := h.svc.Validate(c.Request().Context(), body.Token)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"user_id": ident.UserID,
		"role":    ident.Role,
	})
}

func (h *Handler) RevokeToken(c echo.Context) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Revoke(c.Request().Context(), body.Token); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAuditLogs(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAuditLogs(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAuditLogsByUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAuditLogsByUser(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
