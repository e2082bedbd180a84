package tenancy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/identity"
	"github.com/hms/hms/internal/platform/token"
)

var (
	// ErrNotFound is returned when an organization or location does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoTenantContext is returned when no tenant scope can be established
	// for a request. Resolution fails closed: an ambiguous or unknown
	// subdomain is indistinguishable from a missing one.
	ErrNoTenantContext = errors.New("no tenant context")
)

// Service resolves tenant scope and branch visibility.
type Service struct {
	orgs     OrganizationRepository
	locs     LocationRepository
	accounts identity.AccountRepository
	log      zerolog.Logger
}

func NewService(orgs OrganizationRepository, locs LocationRepository, accounts identity.AccountRepository, log zerolog.Logger) *Service {
	return &Service{orgs: orgs, locs: locs, accounts: accounts, log: log}
}

// ResolveTenant establishes the tenant scope for a request.
//
// A principal bound to an organization is always scoped to that organization;
// any subdomain hint is ignored. An org-less super admin with a subdomain
// hint is scoped to the single active organization matching it. Without a
// hint the super admin operates platform-wide. Everyone else without an
// organization has no tenant context.
func (s *Service) ResolveTenant(ctx context.Context, p *token.Principal, subdomainHint string) (Scope, error) {
	if p == nil {
		return Scope{}, ErrNoTenantContext
	}

	if p.OrganizationID != nil {
		return ScopedTo(*p.OrganizationID), nil
	}

	if p.Role != identity.RoleSuperAdmin {
		return Scope{}, ErrNoTenantContext
	}

	if subdomainHint == "" {
		return PlatformWide(), nil
	}

	orgs, err := s.orgs.ListBySubdomain(ctx, subdomainHint)
	if err != nil {
		return Scope{}, fmt.Errorf("resolve subdomain %q: %w", subdomainHint, err)
	}

	var active []*Organization
	for _, org := range orgs {
		if org.Active {
			active = append(active, org)
		}
	}
	if len(active) != 1 {
		s.log.Warn().
			Str("subdomain", subdomainHint).
			Int("active_matches", len(active)).
			Msg("subdomain did not resolve to exactly one active organization")
		return Scope{}, ErrNoTenantContext
	}
	return ScopedTo(active[0].ID), nil
}

// GetOrganization returns one organization by id.
func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.orgs.GetByID(ctx, id)
}

// ListOrganizations returns a page of organizations with the total count.
func (s *Service) ListOrganizations(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	return s.orgs.List(ctx, limit, offset)
}

// CreateOrganization registers a new tenant. New organizations start active.
func (s *Service) CreateOrganization(ctx context.Context, name, subdomain string) (*Organization, error) {
	org := &Organization{
		Name:      name,
		Subdomain: subdomain,
		Active:    true,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	s.log.Info().Str("org_id", org.ID.String()).Str("subdomain", subdomain).Msg("organization created")
	return org, nil
}

// CreateLocation registers a branch under an organization.
func (s *Service) CreateLocation(ctx context.Context, loc *Location) error {
	if loc.OrganizationID == uuid.Nil {
		return ErrNoTenantContext
	}
	return s.locs.Create(ctx, loc)
}

// ListAvailableBranches returns the branches a principal may operate in,
// evaluated in order:
//
//  1. a super admin sees every active branch across all organizations;
//  2. an admin with no branch assignment sees all active branches of their
//     organization;
//  3. an admin assigned to the main branch likewise sees the whole
//     organization;
//  4. an admin assigned to a non-main branch sees exactly that branch;
//  5. everyone else sees no branches.
//
// An assignment to a deactivated branch, main or not, yields no branches.
// The list is ordered main branch first, then by name.
func (s *Service) ListAvailableBranches(ctx context.Context, p *token.Principal) ([]*Location, error) {
	if p == nil {
		return nil, ErrNoTenantContext
	}

	if p.Role == identity.RoleSuperAdmin {
		locs, err := s.locs.ListAllActive(ctx)
		if err != nil {
			return nil, err
		}
		sortBranches(locs)
		return locs, nil
	}

	if p.Role != identity.RoleAdmin || p.OrganizationID == nil {
		return []*Location{}, nil
	}

	account, err := s.accounts.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return []*Location{}, nil
		}
		return nil, err
	}

	if account.LocationID == nil {
		return s.orgBranches(ctx, *p.OrganizationID)
	}

	assigned, err := s.locs.GetByID(ctx, *account.LocationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []*Location{}, nil
		}
		return nil, err
	}

	// A deactivated assignment fails closed before any promotion; a main
	// branch that has been retired must not keep granting org-wide reach.
	if !assigned.Active {
		return []*Location{}, nil
	}
	if assigned.IsMainBranch {
		return s.orgBranches(ctx, *p.OrganizationID)
	}
	return []*Location{assigned}, nil
}

func (s *Service) orgBranches(ctx context.Context, orgID uuid.UUID) ([]*Location, error) {
	locs, err := s.locs.ListActiveByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	sortBranches(locs)
	return locs, nil
}

func sortBranches(locs []*Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		if locs[i].OrganizationID != locs[j].OrganizationID {
			return locs[i].OrganizationID.String() < locs[j].OrganizationID.String()
		}
		if locs[i].IsMainBranch != locs[j].IsMainBranch {
			return locs[i].IsMainBranch
		}
		return locs[i].Name < locs[j].Name
	})
}
