package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/clinic-scheduling-platform/internal/notify"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// maxErrorLen bounds the persisted error_message.
const maxErrorLen = 500

// Store provides persistence for reminders.
type Store struct {
	db DB
}

// NewStore creates a reminder store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const reminderColumns = `id, tenant_id, appointment_id, scheduled_time, channel, status, retry_count, max_retries, COALESCE(error_message, ''), sent_at, created_at, updated_at`

// CreateBatch inserts the planned reminders.
func (s *Store) CreateBatch(ctx context.Context, batch []*Reminder) error {
	now := time.Now().UTC()
	for _, r := range batch {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		r.CreatedAt = now
		r.UpdatedAt = now
		if r.Status == "" {
			r.Status = StatusPending
		}
		if r.MaxRetries <= 0 {
			r.MaxRetries = DefaultMaxRetries
		}
		_, err := s.db.Exec(ctx, `
			INSERT INTO reminders (id, tenant_id, appointment_id, scheduled_time, channel, status, retry_count, max_retries, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			r.ID, r.TenantID, r.AppointmentID, r.ScheduledTime, string(r.Channel),
			string(r.Status), r.RetryCount, r.MaxRetries, r.CreatedAt, r.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("reminders: create: %w", err)
		}
	}
	return nil
}

// ClaimDue leases due pending reminders to one worker. SKIP LOCKED plus the
// lease guard guarantees at most one claimant per reminder per cycle even
// with concurrent dispatcher instances.
func (s *Store) ClaimDue(ctx context.Context, tenantID *string, asOf time.Time, limit int, lease time.Duration) ([]Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	token := uuid.New()
	claimedUntil := asOf.Add(lease)

	query := `
		UPDATE reminders SET claim_token = $1, claimed_until = $2, updated_at = $2
		WHERE id IN (
			SELECT id FROM reminders
			WHERE status = 'pending' AND scheduled_time <= $3
			  AND (claimed_until IS NULL OR claimed_until <= $3)`
	args := []any{token, claimedUntil, asOf}
	if tenantID != nil {
		args = append(args, *tenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(`
			ORDER BY scheduled_time ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $%d
		)
		RETURNING `+reminderColumns, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reminders: claim due: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// MarkSent finalizes a delivered reminder.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'sent', sent_at = $1, claim_token = NULL, claimed_until = NULL, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, sentAt, id)
	if err != nil {
		return fmt.Errorf("reminders: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminders: mark sent: no pending reminder with id %s", id)
	}
	return nil
}

// Requeue pushes a failed reminder forward for another attempt. The scheduled
// time only ever moves later, never earlier.
func (s *Store) Requeue(ctx context.Context, id uuid.UUID, retryCount int, next time.Time, sendErr string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE reminders
		SET retry_count = $1, scheduled_time = GREATEST(scheduled_time, $2), error_message = $3,
		    claim_token = NULL, claimed_until = NULL, updated_at = $4
		WHERE id = $5 AND status = 'pending'`,
		retryCount, next, truncateError(sendErr), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: requeue: %w", err)
	}
	return nil
}

// MarkFailed finalizes a reminder whose retries are exhausted.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, sendErr string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE reminders
		SET status = 'failed', retry_count = $1, error_message = $2,
		    claim_token = NULL, claimed_until = NULL, updated_at = $3
		WHERE id = $4 AND status = 'pending'`,
		retryCount, truncateError(sendErr), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: mark failed: %w", err)
	}
	return nil
}

// CancelOne cancels a single pending reminder, used when dispatch discovers
// the parent appointment is no longer active.
func (s *Store) CancelOne(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'cancelled', claim_token = NULL, claimed_until = NULL, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: cancel one: %w", err)
	}
	return nil
}

// CancelPending bulk-cancels an appointment's pending reminders. Terminal
// reminders are left untouched, so the operation is idempotent.
func (s *Store) CancelPending(ctx context.Context, tenantID string, appointmentID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'cancelled', claim_token = NULL, claimed_until = NULL, updated_at = $1
		WHERE tenant_id = $2 AND appointment_id = $3 AND status = 'pending'`,
		time.Now().UTC(), tenantID, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("reminders: cancel pending: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByAppointment returns an appointment's reminders, newest schedule first.
func (s *Store) ListByAppointment(ctx context.Context, tenantID string, appointmentID uuid.UUID) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE tenant_id = $1 AND appointment_id = $2
		ORDER BY scheduled_time ASC`, tenantID, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("reminders: list by appointment: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func truncateError(msg string) string {
	if len(msg) > maxErrorLen {
		return msg[:maxErrorLen]
	}
	return msg
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var result []Reminder
	for rows.Next() {
		var r Reminder
		var status, channel string
		err := rows.Scan(
			&r.ID, &r.TenantID, &r.AppointmentID, &r.ScheduledTime,
			&channel, &status, &r.RetryCount, &r.MaxRetries,
			&r.ErrorMessage, &r.SentAt, &r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan: %w", err)
		}
		r.Status = Status(status)
		r.Channel = notify.Channel(channel)
		result = append(result, r)
	}
	return result, rows.Err()
}
