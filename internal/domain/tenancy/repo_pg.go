package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryable abstracts pgxpool.Pool and pgxpool.Conn.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// -- Organization Repository --

const orgColumns = `id, name, subdomain, is_active, settings, created_at, updated_at`

type orgRepoPG struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepo(pool *pgxpool.Pool) OrganizationRepository {
	return &orgRepoPG{pool: pool}
}

func (r *orgRepoPG) conn(_ context.Context) queryable {
	return r.pool
}

func (r *orgRepoPG) Create(ctx context.Context, org *Organization) error {
	org.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organization (id, name, subdomain, is_active, settings)
		VALUES ($1, $2, $3, $4, $5)`,
		org.ID, org.Name, org.Subdomain, org.Active, org.Settings,
	)
	return err
}

func (r *orgRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return r.scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organization WHERE id = $1`, id))
}

func (r *orgRepoPG) ListBySubdomain(ctx context.Context, subdomain string) ([]*Organization, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orgColumns+` FROM organization WHERE subdomain = $1 ORDER BY created_at`, subdomain)
	if err != nil {
		return nil, fmt.Errorf("list organizations by subdomain: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org, err := r.scanOrgRow(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *orgRepoPG) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM organization`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orgColumns+` FROM organization ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org, err := r.scanOrgRow(rows)
		if err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, org)
	}
	return orgs, total, rows.Err()
}

func (r *orgRepoPG) Update(ctx context.Context, org *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization SET
			name = $2, subdomain = $3, is_active = $4, settings = $5, updated_at = NOW()
		WHERE id = $1`,
		org.ID, org.Name, org.Subdomain, org.Active, org.Settings,
	)
	return err
}

func (r *orgRepoPG) scanOrg(row pgx.Row) (*Organization, error) {
	org := &Organization{}
	err := row.Scan(&org.ID, &org.Name, &org.Subdomain, &org.Active, &org.Settings,
		&org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	return org, nil
}

func (r *orgRepoPG) scanOrgRow(rows pgx.Rows) (*Organization, error) {
	org := &Organization{}
	err := rows.Scan(&org.ID, &org.Name, &org.Subdomain, &org.Active, &org.Settings,
		&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	return org, nil
}

// -- Location Repository --

const locColumns = `id, organization_id, code, name, is_main_branch, is_active, created_at`

type locRepoPG struct {
	pool *pgxpool.Pool
}

func NewLocationRepo(pool *pgxpool.Pool) LocationRepository {
	return &locRepoPG{pool: pool}
}

func (r *locRepoPG) conn(_ context.Context) queryable {
	return r.pool
}

func (r *locRepoPG) Create(ctx context.Context, loc *Location) error {
	loc.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO location (id, organization_id, code, name, is_main_branch, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		loc.ID, loc.OrganizationID, loc.Code, loc.Name, loc.IsMainBranch, loc.Active,
	)
	return err
}

func (r *locRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	loc := &Location{}
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+locColumns+` FROM location WHERE id = $1`, id).
		Scan(&loc.ID, &loc.OrganizationID, &loc.Code, &loc.Name,
			&loc.IsMainBranch, &loc.Active, &loc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan location: %w", err)
	}
	return loc, nil
}

func (r *locRepoPG) ListActiveByOrganization(ctx context.Context, orgID uuid.UUID) ([]*Location, error) {
	return r.list(ctx,
		`SELECT `+locColumns+` FROM location
		WHERE organization_id = $1 AND is_active = TRUE
		ORDER BY is_main_branch DESC, name`, orgID)
}

func (r *locRepoPG) ListAllActive(ctx context.Context) ([]*Location, error) {
	return r.list(ctx,
		`SELECT `+locColumns+` FROM location
		WHERE is_active = TRUE
		ORDER BY organization_id, is_main_branch DESC, name`)
}

func (r *locRepoPG) list(ctx context.Context, query string, args ...any) ([]*Location, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locs []*Location
	for rows.Next() {
		loc := &Location{}
		if err := rows.Scan(&loc.ID, &loc.OrganizationID, &loc.Code, &loc.Name,
			&loc.IsMainBranch, &loc.Active, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}
