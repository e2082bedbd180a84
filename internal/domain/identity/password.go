package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type pgPasswordVerifier struct {
	pool *pgxpool.Pool
}

// NewPasswordVerifier returns a verifier backed by the bcrypt hash stored
// on the account row.
func NewPasswordVerifier(pool *pgxpool.Pool) PasswordVerifier {
	return &pgPasswordVerifier{pool: pool}
}

func (v *pgPasswordVerifier) Verify(ctx context.Context, accountID uuid.UUID, password string) error {
	var hash string
	err := v.pool.QueryRow(ctx,
		`SELECT password_hash FROM app_user WHERE id = $1`, accountID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("load password hash: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for storage on an account row.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
