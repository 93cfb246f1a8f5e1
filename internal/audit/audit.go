// Package audit persists structured audit events for scheduling operations.
// Recording is fire-and-forget: callers log and swallow recorder errors so an
// audit outage never fails a booking.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action identifies the operation being audited.
type Action string

const (
	ActionAppointmentCreated   Action = "appointment.created"
	ActionAppointmentUpdated   Action = "appointment.updated"
	ActionAppointmentCancelled Action = "appointment.cancelled"
	ActionAppointmentStatus    Action = "appointment.status_changed"
	ActionRemindersPlanned     Action = "reminders.planned"
	ActionRemindersCancelled   Action = "reminders.cancelled"
	ActionRemindersProcessed   Action = "reminders.processed"
)

// Event represents an immutable audit record.
type Event struct {
	ID           string          `json:"id"`
	Action       Action          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty"`
	TenantID     string          `json:"tenant_id"`
	Status       string          `json:"status"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Service persists audit events to Postgres.
type Service struct {
	db *sql.DB
}

// NewService creates an audit service backed by the given database handle.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record implements Recorder.
func (s *Service) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, action, resource_type, resource_id, tenant_id, status, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Action,
		event.ResourceType,
		nullString(event.ResourceID),
		event.TenantID,
		event.Status,
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: record event: %w", err)
	}
	return nil
}

// Details marshals event-specific fields, dropping them on marshal failure.
func Details(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// Nop is a Recorder that discards every event.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(ctx context.Context, event Event) error { return nil }

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
