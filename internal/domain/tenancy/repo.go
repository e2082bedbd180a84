package tenancy

import (
	"context"

	"github.com/google/uuid"
)

// OrganizationRepository defines the persistence interface for organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	ListBySubdomain(ctx context.Context, subdomain string) ([]*Organization, error)
	List(ctx context.Context, limit, offset int) ([]*Organization, int, error)
	Update(ctx context.Context, org *Organization) error
}

// LocationRepository defines the persistence interface for locations.
// Listing methods return active locations only; GetByID returns any row so
// an assigned-but-deactivated branch can still be identified.
type LocationRepository interface {
	Create(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*Location, error)
	ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Location, error)
	ListAllActive(ctx context.Context) ([]*Location, error)
}
