package identity

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the persistence interface for accounts. Every
// method that takes an organization id filters by it in the query itself;
// callers never post-filter tenant membership.
type AccountRepository interface {
	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByIDInOrganization(ctx context.Context, id, orgID uuid.UUID) (*Account, error)
	GetByEmailInOrganization(ctx context.Context, email string, orgID uuid.UUID) (*Account, error)
	ListByEmail(ctx context.Context, email string) ([]*Account, error)
	ListLinkedByEmail(ctx context.Context, email string) ([]*LinkedAccount, error)
	Update(ctx context.Context, acct *Account) error
}
