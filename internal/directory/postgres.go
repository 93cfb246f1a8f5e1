package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLookup resolves patients and doctors from the directory tables.
type PostgresLookup struct {
	db DB
}

// NewPostgresLookup creates a Postgres-backed lookup.
func NewPostgresLookup(db DB) *PostgresLookup {
	return &PostgresLookup{db: db}
}

// GetPatient implements Lookup.
func (l *PostgresLookup) GetPatient(ctx context.Context, tenantID string, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := l.db.QueryRow(ctx, `
		SELECT id, tenant_id, full_name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(device_token, '')
		FROM patients
		WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&p.ID, &p.TenantID, &p.FullName, &p.Email, &p.Phone, &p.DeviceToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: get patient: %w", err)
	}
	return &p, nil
}

// GetDoctor implements Lookup.
func (l *PostgresLookup) GetDoctor(ctx context.Context, tenantID string, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := l.db.QueryRow(ctx, `
		SELECT id, tenant_id, full_name, COALESCE(email, '')
		FROM doctors
		WHERE tenant_id = $1 AND id = $2`, tenantID, id).
		Scan(&d.ID, &d.TenantID, &d.FullName, &d.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("directory: get doctor: %w", err)
	}
	return &d, nil
}

var _ Lookup = (*PostgresLookup)(nil)
