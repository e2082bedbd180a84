package tenancy

import (
	"fmt"

	"github.com/google/uuid"
)

// Scope is the resolved tenant context for a request. It is either scoped
// to one organization or explicitly platform-wide; there is no nullable
// middle ground for call sites to mishandle. The zero value is invalid and
// unusable, so a Scope can only come from ScopedTo or PlatformWide.
type Scope struct {
	orgID    uuid.UUID
	platform bool
	valid    bool
}

// ScopedTo returns a scope restricted to one organization.
func ScopedTo(orgID uuid.UUID) Scope {
	return Scope{orgID: orgID, valid: true}
}

// PlatformWide returns the cross-tenant scope. Only the tenant resolver
// constructs this, and only for org-less super admins.
func PlatformWide() Scope {
	return Scope{platform: true, valid: true}
}

// OrganizationID returns the scoping organization. ok is false for the
// platform-wide scope; callers must then branch explicitly instead of
// querying without a tenant filter.
func (s Scope) OrganizationID() (uuid.UUID, bool) {
	if !s.valid || s.platform {
		return uuid.Nil, false
	}
	return s.orgID, true
}

// IsPlatformWide reports whether the scope spans all organizations.
func (s Scope) IsPlatformWide() bool {
	return s.valid && s.platform
}

func (s Scope) String() string {
	switch {
	case !s.valid:
		return "invalid"
	case s.platform:
		return "platform-wide"
	default:
		return fmt.Sprintf("org:%s", s.orgID)
	}
}
