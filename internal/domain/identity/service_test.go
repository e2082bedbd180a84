package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/token"
)

// -- Mock Repositories --

type mockAccountRepo struct {
	accounts map[uuid.UUID]*Account
	orgs     map[uuid.UUID]struct {
		name   string
		active bool
	}
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		accounts: make(map[uuid.UUID]*Account),
		orgs: make(map[uuid.UUID]struct {
			name   string
			active bool
		}),
	}
}

func (m *mockAccountRepo) addOrg(id uuid.UUID, name string, active bool) {
	m.orgs[id] = struct {
		name   string
		active bool
	}{name, active}
}

func (m *mockAccountRepo) Create(_ context.Context, acct *Account) error {
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	acct.Email = NormalizeEmail(acct.Email)
	m.accounts[acct.ID] = acct
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockAccountRepo) GetByIDInOrganization(_ context.Context, id, orgID uuid.UUID) (*Account, error) {
	a, ok := m.accounts[id]
	if !ok || a.OrganizationID == nil || *a.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockAccountRepo) GetByEmailInOrganization(_ context.Context, email string, orgID uuid.UUID) (*Account, error) {
	for _, a := range m.accounts {
		if a.Email == NormalizeEmail(email) && a.OrganizationID != nil && *a.OrganizationID == orgID {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockAccountRepo) ListByEmail(_ context.Context, email string) ([]*Account, error) {
	var result []*Account
	for _, a := range m.accounts {
		if a.Email == NormalizeEmail(email) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockAccountRepo) ListLinkedByEmail(_ context.Context, email string) ([]*LinkedAccount, error) {
	var result []*LinkedAccount
	for _, a := range m.accounts {
		if a.Email != NormalizeEmail(email) || a.OrganizationID == nil {
			continue
		}
		org := m.orgs[*a.OrganizationID]
		result = append(result, &LinkedAccount{
			AccountID:          a.ID,
			OrganizationID:     *a.OrganizationID,
			OrganizationName:   org.name,
			OrganizationActive: org.active,
			Role:               a.Role,
			Active:             a.Active,
			LocationID:         a.LocationID,
		})
	}
	return result, nil
}

func (m *mockAccountRepo) Update(_ context.Context, acct *Account) error {
	if _, ok := m.accounts[acct.ID]; !ok {
		return ErrNotFound
	}
	m.accounts[acct.ID] = acct
	return nil
}

// -- Mock credential plumbing --

type mockIssuer struct {
	lastPrincipalID uuid.UUID
	lastOrgID       *uuid.UUID
	lastRole        string
	issued          int
}

func (m *mockIssuer) Issue(principalID uuid.UUID, orgID *uuid.UUID, role string) (*token.Credential, error) {
	m.lastPrincipalID = principalID
	m.lastOrgID = orgID
	m.lastRole = role
	m.issued++
	return &token.Credential{
		AccessToken:  fmt.Sprintf("access-%d", m.issued),
		RefreshToken: fmt.Sprintf("refresh-%d", m.issued),
	}, nil
}

type mockRotator struct {
	principal *token.Principal
	err       error
}

func (m *mockRotator) Rotate(_ context.Context, _ string) (*token.Principal, error) {
	return m.principal, m.err
}

type mockPasswords struct {
	valid map[uuid.UUID]string
}

func (m *mockPasswords) Verify(_ context.Context, accountID uuid.UUID, password string) error {
	if m.valid[accountID] == password {
		return nil
	}
	return errors.New("mismatch")
}

// -- Tests --

func seedAccount(repo *mockAccountRepo, email string, orgID *uuid.UUID, role string, active bool) *Account {
	acct := &Account{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Email:          NormalizeEmail(email),
		Role:           role,
		Active:         active,
	}
	repo.accounts[acct.ID] = acct
	return acct
}

func TestListLinkedAccounts_FiltersInactive(t *testing.T) {
	repo := newMockAccountRepo()
	o1, o2, o3 := uuid.New(), uuid.New(), uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	repo.addOrg(o2, "City Clinic", true)
	repo.addOrg(o3, "Closed Hospital", false)

	seedAccount(repo, "a@h.com", &o1, RoleAdmin, true)
	seedAccount(repo, "a@h.com", &o2, RoleAdmin, false) // deactivated account
	seedAccount(repo, "a@h.com", &o3, RoleAdmin, true)  // disabled organization

	svc := NewService(repo, &mockIssuer{}, &mockRotator{}, &mockPasswords{})
	linked, err := svc.ListLinkedAccounts(context.Background(), "A@h.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(linked) != 1 {
		t.Fatalf("expected 1 linked account, got %d", len(linked))
	}
	if linked[0].OrganizationID != o1 {
		t.Errorf("expected surviving account in org %s, got %s", o1, linked[0].OrganizationID)
	}
}

func TestShowSwitcher(t *testing.T) {
	tests := []struct {
		role  string
		count int
		want  bool
	}{
		{RoleSuperAdmin, 0, true},
		{RoleSuperAdmin, 1, true},
		{RoleAdmin, 1, false},
		{RoleAdmin, 2, true},
		{RoleDoctor, 5, false},
		{RolePatient, 2, false},
	}
	for _, tt := range tests {
		if got := ShowSwitcher(tt.role, tt.count); got != tt.want {
			t.Errorf("ShowSwitcher(%s, %d) = %v, want %v", tt.role, tt.count, got, tt.want)
		}
	}
}

func TestGetAccount(t *testing.T) {
	repo := newMockAccountRepo()
	o1 := uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	acct := seedAccount(repo, "d@h.com", &o1, RoleDoctor, true)

	svc := NewService(repo, &mockIssuer{}, &mockRotator{}, &mockPasswords{})

	got, err := svc.GetAccount(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != acct.ID {
		t.Errorf("expected account %s, got %s", acct.ID, got.ID)
	}

	if _, err := svc.GetAccount(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestSwitchOrganization(t *testing.T) {
	repo := newMockAccountRepo()
	o1, o2 := uuid.New(), uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	repo.addOrg(o2, "City Clinic", true)

	inO1 := seedAccount(repo, "a@h.com", &o1, RoleAdmin, true)
	inO2 := seedAccount(repo, "a@h.com", &o2, RoleDoctor, true)

	issuer := &mockIssuer{}
	svc := NewService(repo, issuer, &mockRotator{}, &mockPasswords{})

	cred, acct, err := svc.SwitchOrganization(context.Background(), inO1.ID, o2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred == nil {
		t.Fatal("expected a credential")
	}

	// A full identity switch: the credential must be bound to the
	// target-organization account and carry that account's role.
	if acct.ID != inO2.ID {
		t.Errorf("expected target account %s, got %s", inO2.ID, acct.ID)
	}
	if issuer.lastPrincipalID != inO2.ID {
		t.Errorf("credential bound to %s, want %s", issuer.lastPrincipalID, inO2.ID)
	}
	if issuer.lastRole != RoleDoctor {
		t.Errorf("credential role %s, want %s", issuer.lastRole, RoleDoctor)
	}
	if issuer.lastOrgID == nil || *issuer.lastOrgID != o2 {
		t.Errorf("credential org %v, want %s", issuer.lastOrgID, o2)
	}
}

func TestSwitchOrganization_NoLinkedAccount(t *testing.T) {
	repo := newMockAccountRepo()
	o1, o2 := uuid.New(), uuid.New()
	repo.addOrg(o1, "General Hospital", true)

	inO1 := seedAccount(repo, "a@h.com", &o1, RoleAdmin, true)

	svc := NewService(repo, &mockIssuer{}, &mockRotator{}, &mockPasswords{})
	_, _, err := svc.SwitchOrganization(context.Background(), inO1.ID, o2)
	if !errors.Is(err, ErrNoLinkedAccount) {
		t.Errorf("expected ErrNoLinkedAccount, got %v", err)
	}
}

func TestSwitchOrganization_InactiveTarget(t *testing.T) {
	repo := newMockAccountRepo()
	o1, o2 := uuid.New(), uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	repo.addOrg(o2, "City Clinic", true)

	inO1 := seedAccount(repo, "a@h.com", &o1, RoleAdmin, true)
	seedAccount(repo, "a@h.com", &o2, RoleAdmin, false)

	svc := NewService(repo, &mockIssuer{}, &mockRotator{}, &mockPasswords{})
	_, _, err := svc.SwitchOrganization(context.Background(), inO1.ID, o2)
	if !errors.Is(err, ErrNoLinkedAccount) {
		t.Errorf("expected ErrNoLinkedAccount for inactive target, got %v", err)
	}
}

func TestLogin_SingleAccount(t *testing.T) {
	repo := newMockAccountRepo()
	o1 := uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	acct := seedAccount(repo, "d@h.com", &o1, RoleDoctor, true)

	issuer := &mockIssuer{}
	passwords := &mockPasswords{valid: map[uuid.UUID]string{acct.ID: "s3cret"}}
	svc := NewService(repo, issuer, &mockRotator{}, passwords)

	cred, got, err := svc.Login(context.Background(), "D@h.com", "s3cret", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred == nil || got.ID != acct.ID {
		t.Errorf("expected login as %s", acct.ID)
	}
}

func TestLogin_AmbiguousWithoutOrganization(t *testing.T) {
	repo := newMockAccountRepo()
	o1, o2 := uuid.New(), uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	repo.addOrg(o2, "City Clinic", true)
	seedAccount(repo, "a@h.com", &o1, RoleAdmin, true)
	seedAccount(repo, "a@h.com", &o2, RoleAdmin, true)

	svc := NewService(repo, &mockIssuer{}, &mockRotator{}, &mockPasswords{})
	_, _, err := svc.Login(context.Background(), "a@h.com", "pw", nil)
	if !errors.Is(err, ErrOrganizationRequired) {
		t.Errorf("expected ErrOrganizationRequired, got %v", err)
	}
}

func TestLogin_SelectsNamedOrganization(t *testing.T) {
	repo := newMockAccountRepo()
	o1, o2 := uuid.New(), uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	repo.addOrg(o2, "City Clinic", true)
	seedAccount(repo, "a@h.com", &o1, RoleAdmin, true)
	inO2 := seedAccount(repo, "a@h.com", &o2, RoleAdmin, true)

	issuer := &mockIssuer{}
	passwords := &mockPasswords{valid: map[uuid.UUID]string{inO2.ID: "pw"}}
	svc := NewService(repo, issuer, &mockRotator{}, passwords)

	_, got, err := svc.Login(context.Background(), "a@h.com", "pw", &o2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != inO2.ID {
		t.Errorf("expected account in named org, got %s", got.ID)
	}
}

func TestLogin_BadPassword(t *testing.T) {
	repo := newMockAccountRepo()
	o1 := uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	acct := seedAccount(repo, "d@h.com", &o1, RoleDoctor, true)

	passwords := &mockPasswords{valid: map[uuid.UUID]string{acct.ID: "right"}}
	svc := NewService(repo, &mockIssuer{}, &mockRotator{}, passwords)

	_, _, err := svc.Login(context.Background(), "d@h.com", "wrong", nil)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	repo := newMockAccountRepo()
	o1 := uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	seedAccount(repo, "d@h.com", &o1, RoleDoctor, false)

	svc := NewService(repo, &mockIssuer{}, &mockRotator{}, &mockPasswords{})
	_, _, err := svc.Login(context.Background(), "d@h.com", "pw", nil)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefresh_ReloadsAccount(t *testing.T) {
	repo := newMockAccountRepo()
	o1 := uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	acct := seedAccount(repo, "d@h.com", &o1, RoleDoctor, true)

	// Role changed since the refresh token was minted; the new credential
	// must carry the current role from the store.
	acct.Role = RoleAdmin

	issuer := &mockIssuer{}
	rotator := &mockRotator{principal: &token.Principal{ID: acct.ID, OrganizationID: &o1, Role: RoleDoctor}}
	svc := NewService(repo, issuer, rotator, &mockPasswords{})

	_, got, err := svc.Refresh(context.Background(), "refresh-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Role != RoleAdmin {
		t.Errorf("expected refreshed role admin, got %s", got.Role)
	}
	if issuer.lastRole != RoleAdmin {
		t.Errorf("expected issued role admin, got %s", issuer.lastRole)
	}
}

func TestRefresh_InactiveAccountDenied(t *testing.T) {
	repo := newMockAccountRepo()
	o1 := uuid.New()
	repo.addOrg(o1, "General Hospital", true)
	acct := seedAccount(repo, "d@h.com", &o1, RoleDoctor, false)

	rotator := &mockRotator{principal: &token.Principal{ID: acct.ID, OrganizationID: &o1, Role: RoleDoctor}}
	svc := NewService(repo, &mockIssuer{}, rotator, &mockPasswords{})

	_, _, err := svc.Refresh(context.Background(), "refresh-token")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for inactive account, got %v", err)
	}
}

func TestRefresh_RotationFailure(t *testing.T) {
	repo := newMockAccountRepo()
	rotator := &mockRotator{err: token.ErrRevoked}
	svc := NewService(repo, &mockIssuer{}, rotator, &mockPasswords{})

	_, _, err := svc.Refresh(context.Background(), "reused-token")
	if !errors.Is(err, token.ErrRevoked) {
		t.Errorf("expected ErrRevoked, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A.Doctor@Hospital.COM "); got != "a.doctor@hospital.com" {
		t.Errorf("unexpected normalization: %q", got)
	}
}
