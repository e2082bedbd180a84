package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/token"
)

type Handler struct {
	svc    *Service
	tokens *token.Service
}

func NewHandler(svc *Service, tokens *token.Service) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

// RegisterRoutes wires auth endpoints onto the public group and session
// endpoints onto the authenticated group.
func (h *Handler) RegisterRoutes(public, authed *echo.Group) {
	public.POST("/auth/login", h.Login)
	public.POST("/auth/refresh", h.Refresh)
	public.POST("/auth/logout", h.Logout)

	session := authed.Group("/session", token.RequireRole(RoleAdmin, RoleSuperAdmin))
	session.GET("/organizations", h.ListOrganizations)
	session.POST("/organization", h.SwitchOrganization)
}

type loginRequest struct {
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

type credentialResponse struct {
	*token.Credential
	AccountID      uuid.UUID  `json:"account_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Role           string     `json:"role"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	cred, acct, err := h.svc.Login(c.Request().Context(), req.Email, req.Password, req.OrganizationID)
	switch {
	case errors.Is(err, ErrOrganizationRequired):
		return echo.NewHTTPError(http.StatusBadRequest, "organization must be specified")
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, credentialResponse{
		Credential:     cred,
		AccountID:      acct.ID,
		OrganizationID: acct.OrganizationID,
		Role:           acct.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	cred, acct, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	switch {
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrRevoked), errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, credentialResponse{
		Credential:     cred,
		AccountID:      acct.ID,
		OrganizationID: acct.OrganizationID,
		Role:           acct.Role,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.tokens.Revoke(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type switcherResponse struct {
	Organizations []*LinkedAccount `json:"organizations"`
	ShowSwitcher  bool             `json:"show_switcher"`
}

// ListOrganizations builds the organization switcher for the current
// principal from the identity federation index.
func (h *Handler) ListOrganizations(c echo.Context) error {
	p := token.PrincipalFromContext(c.Request().Context())

	acct, err := h.svc.GetAccount(c.Request().Context(), p.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "account not found")
	}

	linked, err := h.svc.ListLinkedAccounts(c.Request().Context(), acct.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, switcherResponse{
		Organizations: linked,
		ShowSwitcher:  ShowSwitcher(p.Role, len(linked)),
	})
}

type switchRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	RefreshToken   string    `json:"refresh_token,omitempty"`
}

// SwitchOrganization reissues a credential bound to the caller's account in
// the target organization. The old refresh token, when supplied, is revoked
// so only one session chain stays live.
func (h *Handler) SwitchOrganization(c echo.Context) error {
	p := token.PrincipalFromContext(c.Request().Context())

	var req switchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.OrganizationID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "organization_id is required")
	}

	cred, acct, err := h.svc.SwitchOrganization(c.Request().Context(), p.ID, req.OrganizationID)
	switch {
	case errors.Is(err, ErrNoLinkedAccount):
		return echo.NewHTTPError(http.StatusForbidden, "no account in that organization")
	case err != nil:
		return err
	}

	if req.RefreshToken != "" {
		if err := h.tokens.Revoke(c.Request().Context(), req.RefreshToken); err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, credentialResponse{
		Credential:     cred,
		AccountID:      acct.ID,
		OrganizationID: acct.OrganizationID,
		Role:           acct.Role,
	})
}
