package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/appointments"
	"github.com/wolfman30/clinic-scheduling-platform/internal/audit"
	"github.com/wolfman30/clinic-scheduling-platform/internal/directory"
	"github.com/wolfman30/clinic-scheduling-platform/internal/notify"
	"github.com/wolfman30/clinic-scheduling-platform/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

type dispatchStore interface {
	ClaimDue(ctx context.Context, tenantID *string, asOf time.Time, limit int, lease time.Duration) ([]Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	Requeue(ctx context.Context, id uuid.UUID, retryCount int, next time.Time, sendErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, sendErr string) error
	CancelOne(ctx context.Context, id uuid.UUID) error
}

type appointmentSource interface {
	GetForTenant(ctx context.Context, tenantID string, id uuid.UUID) (*appointments.Appointment, error)
}

// Dispatcher claims due reminders and drives them to a terminal state.
// Send failures never propagate; they live on the reminder row and in the
// returned stats.
type Dispatcher struct {
	store       dispatchStore
	appts       appointmentSource
	lookup      directory.Lookup
	sender      notify.Sender
	lock        *CycleLock
	auditor     audit.Recorder
	metrics     *metrics.DispatchMetrics
	logger      *logging.Logger
	retryDelay  time.Duration
	sendTimeout time.Duration
	claimLease  time.Duration
	interval    time.Duration
	batchSize   int
	now         func() time.Time
}

// NewDispatcher creates a reminder dispatch worker.
func NewDispatcher(store dispatchStore, appts appointmentSource, lookup directory.Lookup, sender notify.Sender, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		store:       store,
		appts:       appts,
		lookup:      lookup,
		sender:      sender,
		auditor:     audit.Nop{},
		logger:      logger,
		retryDelay:  15 * time.Minute,
		sendTimeout: 10 * time.Second,
		claimLease:  2 * time.Minute,
		interval:    time.Minute,
		batchSize:   50,
		now:         time.Now,
	}
}

func (d *Dispatcher) WithRetryDelay(delay time.Duration) *Dispatcher {
	if delay > 0 {
		d.retryDelay = delay
	}
	return d
}

func (d *Dispatcher) WithSendTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.sendTimeout = timeout
	}
	return d
}

func (d *Dispatcher) WithClaimLease(lease time.Duration) *Dispatcher {
	if lease > 0 {
		d.claimLease = lease
	}
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Dispatcher) WithBatchSize(n int) *Dispatcher {
	if n > 0 {
		d.batchSize = n
	}
	return d
}

func (d *Dispatcher) WithCycleLock(lock *CycleLock) *Dispatcher {
	d.lock = lock
	return d
}

func (d *Dispatcher) WithAuditor(auditor audit.Recorder) *Dispatcher {
	if auditor != nil {
		d.auditor = auditor
	}
	return d
}

func (d *Dispatcher) WithMetrics(m *metrics.DispatchMetrics) *Dispatcher {
	d.metrics = m
	return d
}

// Run polls on a fixed interval until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runCycle(ctx)
		}
	}
}

func (d *Dispatcher) runCycle(ctx context.Context) {
	if _, err := d.ProcessDue(ctx, nil); err != nil {
		d.logger.Error("dispatch cycle failed", "error", err)
	}
}

// ProcessDue claims due pending reminders, optionally scoped to one tenant,
// and attempts delivery for each. Individual failures are contained; the
// error return covers only the claim query itself.
func (d *Dispatcher) ProcessDue(ctx context.Context, tenantID *string) (Stats, error) {
	var stats Stats

	if !d.lock.Acquire(ctx) {
		d.logger.Debug("dispatch cycle already running elsewhere, skipping")
		return stats, nil
	}
	defer d.lock.Release(ctx)

	now := d.now().UTC()
	claimed, err := d.store.ClaimDue(ctx, tenantID, now, d.batchSize, d.claimLease)
	if err != nil {
		return stats, err
	}
	stats.Total = len(claimed)
	d.metrics.ObserveCycleDue(len(claimed))
	if len(claimed) == 0 {
		return stats, nil
	}

	d.logger.Info("processing due reminders", "count", len(claimed))
	for i := range claimed {
		r := &claimed[i]
		switch d.processOne(ctx, r) {
		case outcomeSent:
			stats.Sent++
		case outcomeFailed:
			stats.Failed++
		}
	}

	d.recordAudit(ctx, tenantID, stats)
	return stats, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeCancelled
)

func (d *Dispatcher) processOne(ctx context.Context, r *Reminder) outcome {
	appt, err := d.appts.GetForTenant(ctx, r.TenantID, r.AppointmentID)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			// Orphaned reminder; nothing to send against.
			d.cancelOne(ctx, r, "appointment missing")
			return outcomeCancelled
		}
		return d.fail(ctx, r, err)
	}

	// Guard against reminders whose cascade-cancel raced with dispatch.
	if appt.Status == appointments.StatusCancelled || appt.Status == appointments.StatusCompleted {
		d.cancelOne(ctx, r, string(appt.Status))
		return outcomeCancelled
	}

	patient, err := d.lookup.GetPatient(ctx, r.TenantID, appt.PatientID)
	if err != nil {
		return d.fail(ctx, r, err)
	}

	msg := RenderMessage(r, appt, patient)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	start := time.Now()
	err = d.sender.Send(sendCtx, r.Channel, msg)
	cancel()
	d.metrics.ObserveSendLatency(string(r.Channel), time.Since(start).Seconds())

	if err != nil {
		return d.fail(ctx, r, err)
	}

	sentAt := d.now().UTC()
	if err := d.store.MarkSent(ctx, r.ID, sentAt); err != nil {
		d.logger.Error("mark sent failed", "reminder_id", r.ID, "error", err)
		return outcomeFailed
	}
	d.metrics.ObserveOutcome(string(r.Channel), "sent")
	d.logger.Info("reminder sent", "reminder_id", r.ID, "channel", r.Channel)
	return outcomeSent
}

// fail applies the retry policy: bounded requeues, then terminal failure.
// A send timeout lands here like any other failure.
func (d *Dispatcher) fail(ctx context.Context, r *Reminder, sendErr error) outcome {
	retryCount := r.RetryCount + 1
	if retryCount < r.MaxRetries {
		next := d.now().UTC().Add(d.retryDelay)
		if err := d.store.Requeue(ctx, r.ID, retryCount, next, sendErr.Error()); err != nil {
			d.logger.Error("requeue failed", "reminder_id", r.ID, "error", err)
		}
		d.metrics.ObserveOutcome(string(r.Channel), "requeued")
		d.logger.Warn("reminder send failed, requeued",
			"reminder_id", r.ID, "retry_count", retryCount, "next_attempt", next, "error", sendErr)
		return outcomeFailed
	}

	if err := d.store.MarkFailed(ctx, r.ID, retryCount, sendErr.Error()); err != nil {
		d.logger.Error("mark failed failed", "reminder_id", r.ID, "error", err)
	}
	d.metrics.ObserveOutcome(string(r.Channel), "failed")
	d.logger.Error("reminder failed permanently",
		"reminder_id", r.ID, "retry_count", retryCount, "error", sendErr)
	return outcomeFailed
}

func (d *Dispatcher) cancelOne(ctx context.Context, r *Reminder, reason string) {
	if err := d.store.CancelOne(ctx, r.ID); err != nil {
		d.logger.Error("cancel reminder failed", "reminder_id", r.ID, "error", err)
		return
	}
	d.metrics.ObserveOutcome(string(r.Channel), "cancelled")
	d.logger.Info("reminder cancelled at dispatch", "reminder_id", r.ID, "reason", reason)
}

func (d *Dispatcher) recordAudit(ctx context.Context, tenantID *string, stats Stats) {
	tenant := ""
	if tenantID != nil {
		tenant = *tenantID
	}
	err := d.auditor.Record(ctx, audit.Event{
		Action:       audit.ActionRemindersProcessed,
		ResourceType: "reminder",
		TenantID:     tenant,
		Status:       "success",
		Details:      audit.Details(stats),
	})
	if err != nil {
		d.logger.Warn("audit record failed", "action", audit.ActionRemindersProcessed, "error", err)
	}
}
