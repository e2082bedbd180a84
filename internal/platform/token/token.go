package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed, expired, and wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRevoked is returned when a refresh token has been rotated or
	// explicitly revoked.
	ErrRevoked = errors.New("token revoked")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Principal is the authenticated actor extracted from a verified credential.
// OrganizationID is nil only for platform-level super admins with no home
// organization.
type Principal struct {
	ID             uuid.UUID
	OrganizationID *uuid.UUID
	Role           string
}

// Claims carries the principal's identity inside a signed JWT. The same
// claim set is used for access and refresh tokens, distinguished by typ.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"org_id,omitempty"`
	Role           string `json:"role"`
	TokenType      string `json:"typ"`
}

// Credential is an access/refresh token pair scoped to one account in one
// organization. Switching organizations always produces a new Credential.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Service mints and verifies HS256 credentials. It is safe for concurrent
// use; the only mutable state is the revocation store.
type Service struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    RevocationStore
	now        func() time.Time
}

func NewService(signingKey []byte, issuer string, accessTTL, refreshTTL time.Duration, revoked RevocationStore) *Service {
	return &Service{
		signingKey: signingKey,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		revoked:    revoked,
		now:        time.Now,
	}
}

// Issue mints a fresh access/refresh pair bound to the given account
// identity. orgID may be nil for org-less super admins.
func (s *Service) Issue(principalID uuid.UUID, orgID *uuid.UUID, role string) (*Credential, error) {
	now := s.now()

	access, accessExp, err := s.sign(principalID, orgID, role, typeAccess, now, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, _, err := s.sign(principalID, orgID, role, typeRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &Credential{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
	}, nil
}

func (s *Service) sign(principalID uuid.UUID, orgID *uuid.UUID, role, tokenType string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   principalID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:      role,
		TokenType: tokenType,
	}
	if orgID != nil {
		claims.OrganizationID = orgID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses an access token and returns the principal it carries.
// Refresh tokens are rejected here; they are only accepted by Rotate.
func (s *Service) Verify(tokenStr string) (*Principal, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != typeAccess {
		return nil, ErrInvalidToken
	}
	return principalFromClaims(claims)
}

// Rotate validates a refresh token, revokes it, and returns the principal so
// the caller can re-check the account and issue a fresh pair. A refresh
// token can be rotated at most once; a second use fails with ErrRevoked.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (*Principal, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != typeRefresh {
		return nil, ErrInvalidToken
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("revoke rotated token: %w", err)
	}

	return principalFromClaims(claims)
}

// Revoke invalidates a refresh token without issuing a replacement (logout).
// Invalid tokens are ignored: logout with a garbage token is a no-op.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil
	}
	if claims.TokenType != typeRefresh {
		return nil
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *Service) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func principalFromClaims(claims *Claims) (*Principal, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	p := &Principal{ID: id, Role: claims.Role}
	if claims.OrganizationID != "" {
		orgID, err := uuid.Parse(claims.OrganizationID)
		if err != nil {
			return nil, ErrInvalidToken
		}
		p.OrganizationID = &orgID
	}
	return p, nil
}
