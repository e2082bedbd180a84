package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/token"
)

var (
	// ErrNotFound means the account does not exist or is not visible in the
	// caller's scope.
	ErrNotFound = errors.New("account not found")
	// ErrNoLinkedAccount means the person has no account in the target
	// organization; surfaced distinctly so the UI can explain the denial.
	ErrNoLinkedAccount = errors.New("no account in target organization")
	// ErrInvalidCredentials covers bad email/password combinations without
	// distinguishing which part failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrOrganizationRequired is returned on login when the email maps to
	// accounts in several organizations and no tenant was named.
	ErrOrganizationRequired = errors.New("organization must be specified")
)

// CredentialIssuer mints a scoped credential for one account. Satisfied by
// token.Service.
type CredentialIssuer interface {
	Issue(principalID uuid.UUID, orgID *uuid.UUID, role string) (*token.Credential, error)
}

// CredentialRotator invalidates a refresh token and returns its principal.
// Satisfied by token.Service.
type CredentialRotator interface {
	Rotate(ctx context.Context, refreshToken string) (*token.Principal, error)
}

// PasswordVerifier checks a password for an account. The hashing scheme is
// outside this subsystem; only the verdict matters here.
type PasswordVerifier interface {
	Verify(ctx context.Context, accountID uuid.UUID, password string) error
}

type Service struct {
	accounts  AccountRepository
	issuer    CredentialIssuer
	rotator   CredentialRotator
	passwords PasswordVerifier
}

func NewService(accounts AccountRepository, issuer CredentialIssuer, rotator CredentialRotator, passwords PasswordVerifier) *Service {
	return &Service{accounts: accounts, issuer: issuer, rotator: rotator, passwords: passwords}
}

// GetAccount returns one account by id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// ListLinkedAccounts returns the federation index for an email: one entry
// per organization where an active account exists in an active organization.
// Rows without an organization never appear here; the index exists solely to
// build the organization switcher, not to join clinical data across tenants.
func (s *Service) ListLinkedAccounts(ctx context.Context, email string) ([]*LinkedAccount, error) {
	rows, err := s.accounts.ListLinkedByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}

	linked := make([]*LinkedAccount, 0, len(rows))
	for _, la := range rows {
		if !la.Active || !la.OrganizationActive {
			continue
		}
		linked = append(linked, la)
	}
	return linked, nil
}

// ShowSwitcher decides whether the organization switcher is presented.
// super_admin is inherently cross-tenant and always sees it; admin sees it
// only with at least two linked accounts, so a lone admin account never
// implies cross-tenant capability; other roles never switch.
func ShowSwitcher(role string, linkedCount int) bool {
	switch role {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return linkedCount >= 2
	default:
		return false
	}
}

// SwitchOrganization performs a full identity switch: the new credential is
// bound to the target organization's account with that account's role, not
// a permission overlay on the current one. Denied when the person has no
// active account in the target organization.
func (s *Service) SwitchOrganization(ctx context.Context, currentPrincipalID, targetOrgID uuid.UUID) (*token.Credential, *Account, error) {
	current, err := s.accounts.GetByID(ctx, currentPrincipalID)
	if err != nil {
		return nil, nil, fmt.Errorf("load current account: %w", err)
	}

	target, err := s.accounts.GetByEmailInOrganization(ctx, current.Email, targetOrgID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, ErrNoLinkedAccount
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load target account: %w", err)
	}
	if !target.Active {
		return nil, nil, ErrNoLinkedAccount
	}

	cred, err := s.issuer.Issue(target.ID, target.OrganizationID, target.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("issue credential: %w", err)
	}
	return cred, target, nil
}

// Login authenticates an email/password pair. When the email is linked to
// several organizations the caller must name one; ambiguity is never
// resolved silently.
func (s *Service) Login(ctx context.Context, email, password string, orgID *uuid.UUID) (*token.Credential, *Account, error) {
	candidates, err := s.accounts.ListByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("look up accounts: %w", err)
	}

	var active []*Account
	for _, a := range candidates {
		if a.Active {
			active = append(active, a)
		}
	}

	var acct *Account
	switch {
	case len(active) == 0:
		return nil, nil, ErrInvalidCredentials
	case orgID != nil:
		for _, a := range active {
			if a.OrganizationID != nil && *a.OrganizationID == *orgID {
				acct = a
				break
			}
		}
		if acct == nil {
			return nil, nil, ErrInvalidCredentials
		}
	case len(active) == 1:
		acct = active[0]
	default:
		return nil, nil, ErrOrganizationRequired
	}

	if err := s.passwords.Verify(ctx, acct.ID, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	cred, err := s.issuer.Issue(acct.ID, acct.OrganizationID, acct.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("issue credential: %w", err)
	}
	return cred, acct, nil
}

// Refresh rotates a refresh token. The account is re-read so that role or
// organization changes and deactivation take effect on the next credential.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*token.Credential, *Account, error) {
	principal, err := s.rotator.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	acct, err := s.accounts.GetByID(ctx, principal.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load account: %w", err)
	}
	if !acct.Active {
		return nil, nil, ErrNotFound
	}

	cred, err := s.issuer.Issue(acct.ID, acct.OrganizationID, acct.Role)
	if err != nil {
		return nil, nil, fmt.Errorf("issue credential: %w", err)
	}
	return cred, acct, nil
}
