package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, organization_id, location_id, email, role,
	department_id, primary_department_id, is_active, created_at, updated_at`

type accountRepoPG struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) AccountRepository {
	return &accountRepoPG{pool: pool}
}

// queryable abstracts pgxpool.Pool and pgxpool.Conn.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *accountRepoPG) conn(_ context.Context) queryable {
	return r.pool
}

func (r *accountRepoPG) Create(ctx context.Context, acct *Account) error {
	acct.ID = uuid.New()
	acct.Email = NormalizeEmail(acct.Email)

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO app_user (
			id, organization_id, location_id, email, role,
			department_id, primary_department_id, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		acct.ID, acct.OrganizationID, acct.LocationID, acct.Email, acct.Role,
		acct.DepartmentID, acct.PrimaryDepartmentID, acct.Active,
	)
	return err
}

func (r *accountRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.scanAccount(r.conn(ctx).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM app_user WHERE id = $1`, id))
}

func (r *accountRepoPG) GetByIDInOrganization(ctx context.Context, id, orgID uuid.UUID) (*Account, error) {
	return r.scanAccount(r.conn(ctx).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM app_user WHERE id = $1 AND organization_id = $2`, id, orgID))
}

func (r *accountRepoPG) GetByEmailInOrganization(ctx context.Context, email string, orgID uuid.UUID) (*Account, error) {
	return r.scanAccount(r.conn(ctx).QueryRow(ctx,
		`SELECT `+accountColumns+` FROM app_user WHERE email = $1 AND organization_id = $2`,
		NormalizeEmail(email), orgID))
}

func (r *accountRepoPG) ListByEmail(ctx context.Context, email string) ([]*Account, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+accountColumns+` FROM app_user WHERE email = $1 ORDER BY created_at`,
		NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list accounts by email: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		acct, err := r.scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

func (r *accountRepoPG) ListLinkedByEmail(ctx context.Context, email string) ([]*LinkedAccount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT u.id, u.organization_id, o.name, o.is_active, u.role, u.is_active, u.location_id
		FROM app_user u
		JOIN organization o ON o.id = u.organization_id
		WHERE u.email = $1
		ORDER BY o.name`,
		NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	defer rows.Close()

	var linked []*LinkedAccount
	for rows.Next() {
		la := &LinkedAccount{}
		if err := rows.Scan(&la.AccountID, &la.OrganizationID, &la.OrganizationName,
			&la.OrganizationActive, &la.Role, &la.Active, &la.LocationID); err != nil {
			return nil, fmt.Errorf("scan linked account: %w", err)
		}
		linked = append(linked, la)
	}
	return linked, rows.Err()
}

func (r *accountRepoPG) Update(ctx context.Context, acct *Account) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE app_user SET
			organization_id = $2, location_id = $3, email = $4, role = $5,
			department_id = $6, primary_department_id = $7, is_active = $8,
			updated_at = NOW()
		WHERE id = $1`,
		acct.ID, acct.OrganizationID, acct.LocationID, NormalizeEmail(acct.Email), acct.Role,
		acct.DepartmentID, acct.PrimaryDepartmentID, acct.Active,
	)
	return err
}

func (r *accountRepoPG) scanAccount(row pgx.Row) (*Account, error) {
	acct := &Account{}
	err := row.Scan(
		&acct.ID, &acct.OrganizationID, &acct.LocationID, &acct.Email, &acct.Role,
		&acct.DepartmentID, &acct.PrimaryDepartmentID, &acct.Active,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return acct, nil
}

func (r *accountRepoPG) scanAccountRow(rows pgx.Rows) (*Account, error) {
	acct := &Account{}
	err := rows.Scan(
		&acct.ID, &acct.OrganizationID, &acct.LocationID, &acct.Email, &acct.Role,
		&acct.DepartmentID, &acct.PrimaryDepartmentID, &acct.Active,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return acct, nil
}
