package tenancy

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant root: every clinical row is partitioned by it.
// Subdomains and display names are not globally unique; resolution by
// subdomain must therefore tolerate ambiguity and fail closed on it.
type Organization struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Subdomain string         `db:"subdomain" json:"subdomain"`
	Active    bool           `db:"is_active" json:"is_active"`
	Settings  map[string]any `db:"settings" json:"settings,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Location is a physical branch belonging to exactly one organization.
// (organization_id, code) is unique. An organization's main branch carries
// org-wide significance: admins assigned there gain org-wide scope.
type Location struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	IsMainBranch   bool      `db:"is_main_branch" json:"is_main_branch"`
	Active         bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
