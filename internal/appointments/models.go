package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of an appointment.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// ResourceKind names which scarce resource a conflict check is scoped to.
type ResourceKind string

const (
	ResourceDoctor  ResourceKind = "doctor"
	ResourcePatient ResourceKind = "patient"
)

// Appointment represents a time-boxed booking between a doctor and a patient.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	TenantID        string    `json:"tenant_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          Status    `json:"status"`
	Reason          string    `json:"reason"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndTime returns the exclusive end of the appointment window.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Changes carries partial-update fields; nil pointers leave the field untouched.
type Changes struct {
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	DoctorID        *uuid.UUID `json:"doctor_id,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Reason          *string    `json:"reason,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// TouchesSchedule reports whether the change set can introduce a new conflict.
func (c Changes) TouchesSchedule() bool {
	return c.PatientID != nil || c.DoctorID != nil || c.StartTime != nil || c.DurationMinutes != nil
}

// CreateInput holds the fields required to book an appointment.
type CreateInput struct {
	TenantID        string    `json:"tenant_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Reason          string    `json:"reason"`
	Notes           string    `json:"notes,omitempty"`
}
