package reminders

import (
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/clinic-scheduling-platform/internal/notify"
)

// Status tracks the lifecycle of a reminder. sent, failed and cancelled are
// terminal; a terminal reminder never transitions again.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// DefaultMaxRetries bounds delivery attempts for a reminder.
const DefaultMaxRetries = 3

// Reminder represents one scheduled notification for an appointment.
type Reminder struct {
	ID            uuid.UUID      `json:"id"`
	TenantID      string         `json:"tenant_id"`
	AppointmentID uuid.UUID      `json:"appointment_id"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	Channel       notify.Channel `json:"channel"`
	Status        Status         `json:"status"`
	RetryCount    int            `json:"retry_count"`
	MaxRetries    int            `json:"max_retries"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Stats aggregates one dispatch cycle for observability.
type Stats struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
