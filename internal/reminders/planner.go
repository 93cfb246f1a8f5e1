package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/appointments"
	"github.com/wolfman30/clinic-scheduling-platform/internal/audit"
	"github.com/wolfman30/clinic-scheduling-platform/internal/notify"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

type plannerStore interface {
	CreateBatch(ctx context.Context, batch []*Reminder) error
	CancelPending(ctx context.Context, tenantID string, appointmentID uuid.UUID) (int64, error)
}

// Planner projects a reminder schedule from an appointment and owns the
// cancellation cascade. Status progression belongs to the dispatcher.
type Planner struct {
	store      plannerStore
	auditor    audit.Recorder
	logger     *logging.Logger
	maxRetries int
	now        func() time.Time
}

// NewPlanner creates a reminder planner.
func NewPlanner(store plannerStore, auditor audit.Recorder, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.Default()
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Planner{
		store:      store,
		auditor:    auditor,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
}

// WithMaxRetries overrides the per-reminder retry budget.
func (p *Planner) WithMaxRetries(n int) *Planner {
	if n > 0 {
		p.maxRetries = n
	}
	return p
}

// Plan creates one pending reminder per (hours, channel) pair. Pairs whose
// send time has already elapsed are skipped, not sent immediately. Planning
// against a cancelled or completed appointment is a no-op.
func (p *Planner) Plan(ctx context.Context, appt *appointments.Appointment, channels []notify.Channel, hoursBefore []int) ([]Reminder, error) {
	if appt.Status == appointments.StatusCancelled || appt.Status == appointments.StatusCompleted {
		return nil, nil
	}
	for _, ch := range channels {
		if !notify.ValidChannel(ch) {
			return nil, fmt.Errorf("reminders: unknown channel %q", ch)
		}
	}
	for _, hours := range hoursBefore {
		if hours <= 0 {
			return nil, fmt.Errorf("reminders: lead hours must be positive, got %d", hours)
		}
	}

	now := p.now().UTC()
	batch := make([]*Reminder, 0, len(channels)*len(hoursBefore))
	for _, hours := range hoursBefore {
		scheduledTime := appt.StartTime.Add(-time.Duration(hours) * time.Hour)
		if !scheduledTime.After(now) {
			continue
		}
		for _, ch := range channels {
			batch = append(batch, &Reminder{
				TenantID:      appt.TenantID,
				AppointmentID: appt.ID,
				ScheduledTime: scheduledTime,
				Channel:       ch,
				Status:        StatusPending,
				MaxRetries:    p.maxRetries,
			})
		}
	}
	if len(batch) == 0 {
		return nil, nil
	}

	if err := p.store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("reminders: plan: %w", err)
	}

	p.recordAudit(ctx, audit.ActionRemindersPlanned, appt, map[string]any{
		"count":    len(batch),
		"channels": channels,
	})
	p.logger.Info("reminders planned",
		"appointment_id", appt.ID, "tenant_id", appt.TenantID, "count", len(batch))

	result := make([]Reminder, len(batch))
	for i, r := range batch {
		result[i] = *r
	}
	return result, nil
}

// CancelAll cancels every pending reminder for the appointment. Idempotent;
// sent, failed and cancelled reminders are left untouched.
func (p *Planner) CancelAll(ctx context.Context, tenantID string, appointmentID uuid.UUID) (int64, error) {
	count, err := p.store.CancelPending(ctx, tenantID, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("reminders: cancel all: %w", err)
	}
	if count > 0 {
		p.recordAudit(ctx, audit.ActionRemindersCancelled, &appointments.Appointment{ID: appointmentID, TenantID: tenantID}, map[string]any{
			"count": count,
		})
	}
	return count, nil
}

func (p *Planner) recordAudit(ctx context.Context, action audit.Action, appt *appointments.Appointment, details map[string]any) {
	event := audit.Event{
		Action:       action,
		ResourceType: "reminder",
		ResourceID:   appt.ID.String(),
		TenantID:     appt.TenantID,
		Status:       "success",
		Details:      audit.Details(details),
	}
	if err := p.auditor.Record(ctx, event); err != nil {
		p.logger.Warn("audit record failed", "action", action, "error", err)
	}
}
