package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-scheduling-platform/internal/audit"
	"github.com/wolfman30/clinic-scheduling-platform/internal/directory"
	"github.com/wolfman30/clinic-scheduling-platform/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

var schedulerTracer trace.Tracer = otel.Tracer("clinic.internal.appointments")

// ErrInvalidDuration rejects non-positive appointment durations.
var ErrInvalidDuration = errors.New("appointments: duration must be positive")

type store interface {
	Create(ctx context.Context, a *Appointment) error
	GetForTenant(ctx context.Context, tenantID string, id uuid.UUID) (*Appointment, error)
	ApplyChanges(ctx context.Context, tenantID string, id uuid.UUID, changes Changes) (*Appointment, error)
	UpdateStatus(ctx context.Context, tenantID string, id uuid.UUID, from, to Status) (bool, error)
	ListActiveForResource(ctx context.Context, tenantID string, kind ResourceKind, resourceID uuid.UUID, excludeID *uuid.UUID) ([]Appointment, error)
	ListByDoctor(ctx context.Context, tenantID string, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, tenantID string, patientID uuid.UUID, includeCancelled bool) ([]Appointment, error)
}

// ReminderCanceller cascades an appointment cancellation into its pending
// reminders. Implemented by the reminder planner.
type ReminderCanceller interface {
	CancelAll(ctx context.Context, tenantID string, appointmentID uuid.UUID) (int64, error)
}

// Service owns the appointment lifecycle: booking, partial updates, status
// transitions and tenant-scoped reads.
type Service struct {
	store     store
	detector  *Detector
	lookup    directory.Lookup
	reminders ReminderCanceller
	auditor   audit.Recorder
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
}

// NewService constructs the appointment scheduler.
func NewService(st store, lookup directory.Lookup, reminders ReminderCanceller, auditor audit.Recorder, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		store:     st,
		detector:  NewDetector(st),
		lookup:    lookup,
		reminders: reminders,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
	}
}

// Create books a new appointment in state scheduled. Both the doctor's and
// the patient's windows must be free; the storage exclusion constraints close
// the remaining race between check and insert.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Appointment, error) {
	ctx, span := schedulerTracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.tenant_id", input.TenantID),
		attribute.String("clinic.doctor_id", input.DoctorID.String()),
	)

	if input.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	if _, err := s.lookup.GetPatient(ctx, input.TenantID, input.PatientID); err != nil {
		return nil, s.lookupErr("patient", input.PatientID, err)
	}
	if _, err := s.lookup.GetDoctor(ctx, input.TenantID, input.DoctorID); err != nil {
		return nil, s.lookupErr("doctor", input.DoctorID, err)
	}

	duration := time.Duration(input.DurationMinutes) * time.Minute
	if err := s.checkAvailability(ctx, input.TenantID, input.DoctorID, input.PatientID, input.StartTime, duration, nil); err != nil {
		s.observeConflict("create", err)
		return nil, err
	}

	appt := &Appointment{
		TenantID:        input.TenantID,
		PatientID:       input.PatientID,
		DoctorID:        input.DoctorID,
		StartTime:       input.StartTime,
		DurationMinutes: input.DurationMinutes,
		Status:          StatusScheduled,
		Reason:          input.Reason,
		Notes:           input.Notes,
	}
	if err := s.store.Create(ctx, appt); err != nil {
		s.observeConflict("create", err)
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveOperation("create", "success")
	s.recordAudit(ctx, audit.ActionAppointmentCreated, appt.ID.String(), input.TenantID, map[string]any{
		"doctor_id":  input.DoctorID,
		"patient_id": input.PatientID,
		"start_time": input.StartTime,
		"duration":   input.DurationMinutes,
	})
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID, "tenant_id", input.TenantID,
		"doctor_id", input.DoctorID, "start_time", input.StartTime)
	return appt, nil
}

// Update applies a partial change set. Changes touching the schedule re-run
// both conflict checks excluding the appointment itself; on conflict the row
// is left unmodified.
func (s *Service) Update(ctx context.Context, tenantID string, id uuid.UUID, changes Changes) (*Appointment, error) {
	ctx, span := schedulerTracer.Start(ctx, "appointments.update")
	defer span.End()

	existing, err := s.store.GetForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if changes.DurationMinutes != nil && *changes.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}

	if changes.TouchesSchedule() {
		doctorID := existing.DoctorID
		patientID := existing.PatientID
		start := existing.StartTime
		minutes := existing.DurationMinutes
		if changes.DoctorID != nil {
			doctorID = *changes.DoctorID
			if _, err := s.lookup.GetDoctor(ctx, tenantID, doctorID); err != nil {
				return nil, s.lookupErr("doctor", doctorID, err)
			}
		}
		if changes.PatientID != nil {
			patientID = *changes.PatientID
			if _, err := s.lookup.GetPatient(ctx, tenantID, patientID); err != nil {
				return nil, s.lookupErr("patient", patientID, err)
			}
		}
		if changes.StartTime != nil {
			start = *changes.StartTime
		}
		if changes.DurationMinutes != nil {
			minutes = *changes.DurationMinutes
		}
		duration := time.Duration(minutes) * time.Minute
		if err := s.checkAvailability(ctx, tenantID, doctorID, patientID, start, duration, &id); err != nil {
			s.observeConflict("update", err)
			return nil, err
		}
	}

	updated, err := s.store.ApplyChanges(ctx, tenantID, id, changes)
	if err != nil {
		s.observeConflict("update", err)
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveOperation("update", "success")
	s.recordAudit(ctx, audit.ActionAppointmentUpdated, id.String(), tenantID, map[string]any{
		"schedule_changed": changes.TouchesSchedule(),
	})
	return updated, nil
}

// Cancel transitions the appointment to cancelled from any non-terminal state
// and cascades into its pending reminders. The cascade is best-effort: the
// dispatcher re-validates the parent before every send, so a failed cascade
// is caught on the next poll cycle.
func (s *Service) Cancel(ctx context.Context, tenantID string, id uuid.UUID) (*Appointment, error) {
	ctx, span := schedulerTracer.Start(ctx, "appointments.cancel")
	defer span.End()

	existing, err := s.store.GetForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status.IsTerminal() {
		return nil, &InvalidTransitionError{From: existing.Status, To: StatusCancelled}
	}

	ok, err := s.store.UpdateStatus(ctx, tenantID, id, existing.Status, StatusCancelled)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		// Lost a status race; report against the current state.
		current, err := s.store.GetForTenant(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{From: current.Status, To: StatusCancelled}
	}
	existing.Status = StatusCancelled

	if s.reminders != nil {
		if count, err := s.reminders.CancelAll(ctx, tenantID, id); err != nil {
			s.logger.Error("reminder cascade failed, dispatcher will catch stragglers",
				"appointment_id", id, "error", err)
		} else if count > 0 {
			s.logger.Info("cancelled pending reminders", "appointment_id", id, "count", count)
		}
	}

	s.metrics.ObserveOperation("cancel", "success")
	s.recordAudit(ctx, audit.ActionAppointmentCancelled, id.String(), tenantID, nil)
	return existing, nil
}

// Transition applies an explicit status change (confirm, start, complete,
// no-show). Cancellation goes through Cancel so the reminder cascade runs.
func (s *Service) Transition(ctx context.Context, tenantID string, id uuid.UUID, to Status) (*Appointment, error) {
	if to == StatusCancelled {
		return s.Cancel(ctx, tenantID, id)
	}

	existing, err := s.store.GetForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(existing.Status, to) {
		return nil, &InvalidTransitionError{From: existing.Status, To: to}
	}

	ok, err := s.store.UpdateStatus(ctx, tenantID, id, existing.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.store.GetForTenant(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		return nil, &InvalidTransitionError{From: current.Status, To: to}
	}
	existing.Status = to

	s.metrics.ObserveOperation("transition", "success")
	s.recordAudit(ctx, audit.ActionAppointmentStatus, id.String(), tenantID, map[string]any{
		"status": to,
	})
	return existing, nil
}

// GetByID loads a tenant-scoped appointment.
func (s *Service) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*Appointment, error) {
	return s.store.GetForTenant(ctx, tenantID, id)
}

// ListByDoctor returns a doctor's appointments starting inside [from, to).
func (s *Service) ListByDoctor(ctx context.Context, tenantID string, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return s.store.ListByDoctor(ctx, tenantID, doctorID, from, to)
}

// ListByPatient returns a patient's appointments.
func (s *Service) ListByPatient(ctx context.Context, tenantID string, patientID uuid.UUID, includeCancelled bool) ([]Appointment, error) {
	return s.store.ListByPatient(ctx, tenantID, patientID, includeCancelled)
}

func (s *Service) checkAvailability(ctx context.Context, tenantID string, doctorID, patientID uuid.UUID, start time.Time, duration time.Duration, excludeID *uuid.UUID) error {
	free, err := s.detector.IsAvailable(ctx, tenantID, ResourceDoctor, doctorID, start, duration, excludeID)
	if err != nil {
		return err
	}
	if !free {
		return &ConflictError{Resource: ResourceDoctor, Start: start, End: start.Add(duration)}
	}
	free, err = s.detector.IsAvailable(ctx, tenantID, ResourcePatient, patientID, start, duration, excludeID)
	if err != nil {
		return err
	}
	if !free {
		return &ConflictError{Resource: ResourcePatient, Start: start, End: start.Add(duration)}
	}
	return nil
}

func (s *Service) lookupErr(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return fmt.Errorf("appointments: resolve %s: %w", kind, err)
}

func (s *Service) observeConflict(operation string, err error) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		s.metrics.ObserveOperation(operation, "conflict")
		s.metrics.ObserveConflict(string(conflict.Resource))
	}
}

func (s *Service) recordAudit(ctx context.Context, action audit.Action, resourceID, tenantID string, details map[string]any) {
	event := audit.Event{
		Action:       action,
		ResourceType: "appointment",
		ResourceID:   resourceID,
		TenantID:     tenantID,
		Status:       "success",
	}
	if details != nil {
		event.Details = audit.Details(details)
	}
	if err := s.auditor.Record(ctx, event); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}
