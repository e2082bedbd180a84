package access

import (
	"context"
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

type recordRepoPG struct {
	pool *pgxpool.Pool
}

func NewRecordRepo(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) conn(_ context.Context) queryable {
	return r.pool
}

func (r *recordRepoPG) HasReferral(ctx context.Context, orgID, patientID, departmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM referral
			WHERE organization_id = $1 AND patient_id = $2 AND department_id = $3
		)`, orgID, patientID, departmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check referral: %w", err)
	}
	return exists, nil
}

func (r *recordRepoPG) HasAppointment(ctx context.Context, orgID, patientID, doctorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE organization_id = $1 AND patient_id = $2 AND doctor_id = $3
		)`, orgID, patientID, doctorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check appointment: %w", err)
	}
	return exists, nil
}
