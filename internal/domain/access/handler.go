package access

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/domain/tenancy"
	"github.com/hms/hms/internal/platform/token"
)

type Handler struct {
	gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{gate: gate}
}

// RegisterRoutes wires the access-check endpoint onto a tenant-scoped group.
func (h *Handler) RegisterRoutes(scoped *echo.Group) {
	scoped.GET("/patients/:id/access", h.CheckAccess)
}

type accessResponse struct {
	Granted bool `json:"granted"`
}

// CheckAccess reports whether a doctor may see a patient's record. The
// doctor defaults to the caller; an admin may name another doctor via the
// doctor_id query parameter. Denials are 200 responses with granted=false,
// never 404, so probing cannot distinguish a missing patient from a
// cross-tenant one.
func (h *Handler) CheckAccess(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	scope, ok := tenancy.ScopeFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "no tenant context")
	}
	orgID, ok := scope.OrganizationID()
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "access checks require a single tenant scope")
	}

	p := token.PrincipalFromContext(c.Request().Context())
	doctorID := p.ID
	if raw := c.QueryParam("doctor_id"); raw != "" {
		if p.Role != identity.RoleAdmin && p.Role != identity.RoleSuperAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "cannot check access for another doctor")
		}
		doctorID, err = uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
		}
	}

	granted, err := h.gate.CheckDoctorPatientAccess(c.Request().Context(), doctorID, patientID, orgID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessResponse{Granted: granted})
}
