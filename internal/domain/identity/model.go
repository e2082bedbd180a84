package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Roles a principal can hold within one organization.
const (
	RoleSuperAdmin    = "super_admin"
	RoleAdmin         = "admin"
	RoleDoctor        = "doctor"
	RoleNurse         = "nurse"
	RolePatient       = "patient"
	RoleReceptionist  = "receptionist"
	RolePharmacist    = "pharmacist"
	RoleLabTechnician = "lab_technician"
	RoleAccountant    = "accountant"
)

// Account maps to the app_user table. One Account represents a person within
// exactly one organization; the same email may appear as distinct Account
// rows in distinct organizations, and those rows are linked identities of
// one real person, never duplicates. (email, organization_id) is unique.
type Account struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	OrganizationID      *uuid.UUID `db:"organization_id" json:"organization_id,omitempty"`
	LocationID          *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Email               string     `db:"email" json:"email"`
	Role                string     `db:"role" json:"role"`
	DepartmentID        *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	PrimaryDepartmentID *uuid.UUID `db:"primary_department_id" json:"primary_department_id,omitempty"`
	Active              bool       `db:"is_active" json:"is_active"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// LinkedAccount is one entry of the identity federation index: an account
// row joined with its organization, keyed by the shared email.
type LinkedAccount struct {
	AccountID          uuid.UUID  `json:"account_id"`
	OrganizationID     uuid.UUID  `json:"organization_id"`
	OrganizationName   string     `json:"organization_name"`
	OrganizationActive bool       `json:"-"`
	Role               string     `json:"role"`
	Active             bool       `json:"-"`
	LocationID         *uuid.UUID `json:"location_id,omitempty"`
}

// NormalizeEmail produces the federation key that links accounts across
// organizations. All email lookups go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
