// Package directory resolves patients and doctors for the scheduling core.
// Record storage, PHI handling and search live elsewhere; the core only needs
// existence checks and contact details for outbound reminders.
package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a patient or doctor does not exist in the tenant.
var ErrNotFound = errors.New("directory: not found")

// Patient holds the subset of patient data the scheduling core needs.
type Patient struct {
	ID          uuid.UUID `json:"id"`
	TenantID    string    `json:"tenant_id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	DeviceToken string    `json:"device_token,omitempty"`
}

// Doctor holds the subset of doctor data the scheduling core needs.
type Doctor struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenant_id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email,omitempty"`
}

// Lookup resolves patients and doctors within a tenant.
type Lookup interface {
	GetPatient(ctx context.Context, tenantID string, id uuid.UUID) (*Patient, error)
	GetDoctor(ctx context.Context, tenantID string, id uuid.UUID) (*Doctor, error)
}
