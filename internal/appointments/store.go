package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const exclusionViolation = "23P01"

// Store provides persistence for appointments.
type Store struct {
	db DB
}

// NewStore creates an appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const appointmentColumns = `id, tenant_id, patient_id, doctor_id, start_time, duration_minutes, status, reason, COALESCE(notes, ''), created_at, updated_at`

// Create inserts a new appointment. The doctor/patient window exclusion
// constraints reject racing overlaps; those violations surface as ConflictError.
func (s *Store) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusScheduled
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (id, tenant_id, patient_id, doctor_id, start_time, duration_minutes, status, reason, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.TenantID, a.PatientID, a.DoctorID, a.StartTime, a.DurationMinutes,
		string(a.Status), a.Reason, a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if conflict := asConflict(err, a.StartTime, a.EndTime()); conflict != nil {
			return conflict
		}
		return fmt.Errorf("appointments: create: %w", err)
	}
	return nil
}

// GetForTenant loads one appointment scoped to the tenant.
func (s *Store) GetForTenant(ctx context.Context, tenantID string, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

// ApplyChanges persists a partial update and returns the updated row.
// Window-moving changes can trip the exclusion constraints, which surface
// as ConflictError with the row left unmodified.
func (s *Store) ApplyChanges(ctx context.Context, tenantID string, id uuid.UUID, changes Changes) (*Appointment, error) {
	sets := []string{"updated_at = $3"}
	args := []any{tenantID, id, time.Now().UTC()}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.PatientID != nil {
		add("patient_id", *changes.PatientID)
	}
	if changes.DoctorID != nil {
		add("doctor_id", *changes.DoctorID)
	}
	if changes.StartTime != nil {
		add("start_time", *changes.StartTime)
	}
	if changes.DurationMinutes != nil {
		add("duration_minutes", *changes.DurationMinutes)
	}
	if changes.Reason != nil {
		add("reason", *changes.Reason)
	}
	if changes.Notes != nil {
		add("notes", *changes.Notes)
	}

	query := `
		UPDATE appointments SET ` + strings.Join(sets, ", ") + `
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + appointmentColumns
	row := s.db.QueryRow(ctx, query, args...)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		var start, end time.Time
		if changes.StartTime != nil {
			start = *changes.StartTime
			end = start
			if changes.DurationMinutes != nil {
				end = start.Add(time.Duration(*changes.DurationMinutes) * time.Minute)
			}
		}
		if conflict := asConflict(err, start, end); conflict != nil {
			return nil, conflict
		}
		return nil, fmt.Errorf("appointments: apply changes: %w", err)
	}
	return a, nil
}

// UpdateStatus flips the status only when the row is still in the expected
// state, so concurrent transitions cannot both win. Returns false when the
// guard did not match.
func (s *Store) UpdateStatus(ctx context.Context, tenantID string, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4 AND status = $5`,
		string(to), time.Now().UTC(), tenantID, id, string(from))
	if err != nil {
		return false, fmt.Errorf("appointments: update status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListActiveForResource returns the active appointments occupying a doctor's
// or patient's calendar, optionally excluding one id (used during updates).
func (s *Store) ListActiveForResource(ctx context.Context, tenantID string, kind ResourceKind, resourceID uuid.UUID, excludeID *uuid.UUID) ([]Appointment, error) {
	column := "doctor_id"
	if kind == ResourcePatient {
		column = "patient_id"
	}
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1 AND ` + column + ` = $2 AND status IN ('scheduled', 'confirmed', 'in_progress')`
	args := []any{tenantID, resourceID}
	if excludeID != nil {
		args = append(args, *excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += " ORDER BY start_time ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list active: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListByDoctor returns a doctor's appointments starting inside [from, to).
func (s *Store) ListByDoctor(ctx context.Context, tenantID string, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND doctor_id = $2 AND start_time >= $3 AND start_time < $4
		ORDER BY start_time ASC`, tenantID, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by doctor: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListByPatient returns a patient's appointments, optionally including cancelled.
func (s *Store) ListByPatient(ctx context.Context, tenantID string, patientID uuid.UUID, includeCancelled bool) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE tenant_id = $1 AND patient_id = $2`
	if !includeCancelled {
		query += ` AND status <> 'cancelled'`
	}
	query += " ORDER BY start_time ASC"

	rows, err := s.db.Query(ctx, query, tenantID, patientID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by patient: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func asConflict(err error, start, end time.Time) *ConflictError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != exclusionViolation {
		return nil
	}
	resource := ResourceDoctor
	if strings.Contains(pgErr.ConstraintName, "patient") {
		resource = ResourcePatient
	}
	return &ConflictError{Resource: resource, Start: start, End: end}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(
		&a.ID, &a.TenantID, &a.PatientID, &a.DoctorID,
		&a.StartTime, &a.DurationMinutes, &status,
		&a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		var a Appointment
		var status string
		err := rows.Scan(
			&a.ID, &a.TenantID, &a.PatientID, &a.DoctorID,
			&a.StartTime, &a.DurationMinutes, &status,
			&a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		a.Status = Status(status)
		result = append(result, a)
	}
	return result, rows.Err()
}
