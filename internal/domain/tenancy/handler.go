package tenancy

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/platform/token"
	"github.com/hms/hms/pkg/pagination"
)

type scopeKey struct{}

// ScopeFromContext returns the tenant scope resolved for the request.
// It is only present inside handlers behind ScopeMiddleware.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// ScopeMiddleware resolves the tenant scope for the authenticated principal
// and stores it on the request context. The X-Organization-Subdomain header
// lets an org-less super admin pin a request to one tenant.
func ScopeMiddleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := token.PrincipalFromContext(c.Request().Context())
			hint := c.Request().Header.Get("X-Organization-Subdomain")

			scope, err := svc.ResolveTenant(c.Request().Context(), p, hint)
			if errors.Is(err, ErrNoTenantContext) {
				return echo.NewHTTPError(http.StatusBadRequest, "no tenant context")
			}
			if err != nil {
				return err
			}

			ctx := context.WithValue(c.Request().Context(), scopeKey{}, scope)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(authed *echo.Group) {
	authed.GET("/session/branches", h.ListBranches)

	orgs := authed.Group("/organizations")
	orgs.GET("", h.ListOrganizations, token.RequireRole(identity.RoleSuperAdmin))
	orgs.POST("", h.CreateOrganization, token.RequireRole(identity.RoleSuperAdmin))
	orgs.GET("/:id", h.GetOrganization, token.RequireRole(identity.RoleAdmin, identity.RoleSuperAdmin))
	orgs.POST("/:id/locations", h.CreateLocation, token.RequireRole(identity.RoleSuperAdmin))
}

type branchesResponse struct {
	Branches []*Location `json:"branches"`
}

// ListBranches returns the branches the caller may operate in.
func (h *Handler) ListBranches(c echo.Context) error {
	p := token.PrincipalFromContext(c.Request().Context())

	branches, err := h.svc.ListAvailableBranches(c.Request().Context(), p)
	if errors.Is(err, ErrNoTenantContext) {
		return echo.NewHTTPError(http.StatusBadRequest, "no tenant context")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, branchesResponse{Branches: branches})
}

func (h *Handler) ListOrganizations(c echo.Context) error {
	page := pagination.FromContext(c)

	orgs, total, err := h.svc.ListOrganizations(c.Request().Context(), page.Limit, page.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orgs, total, page.Limit, page.Offset))
}

func (h *Handler) GetOrganization(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}

	p := token.PrincipalFromContext(c.Request().Context())
	if p.Role != identity.RoleSuperAdmin {
		if p.OrganizationID == nil || *p.OrganizationID != id {
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}

	org, err := h.svc.GetOrganization(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "organization not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, org)
}

type createOrgRequest struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

func (h *Handler) CreateOrganization(c echo.Context) error {
	var req createOrgRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Subdomain == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and subdomain are required")
	}

	org, err := h.svc.CreateOrganization(c.Request().Context(), req.Name, req.Subdomain)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, org)
}

type createLocationRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	IsMainBranch bool   `json:"is_main_branch"`
}

func (h *Handler) CreateLocation(c echo.Context) error {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}

	var req createLocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" || req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code and name are required")
	}

	loc := &Location{
		OrganizationID: orgID,
		Code:           req.Code,
		Name:           req.Name,
		IsMainBranch:   req.IsMainBranch,
		Active:         true,
	}
	if err := h.svc.CreateLocation(c.Request().Context(), loc); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, loc)
}
