package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Overlaps tests two half-open [start, end) windows. Abutting windows
// (aEnd == bStart or bEnd == aStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

type activeLister interface {
	ListActiveForResource(ctx context.Context, tenantID string, kind ResourceKind, resourceID uuid.UUID, excludeID *uuid.UUID) ([]Appointment, error)
}

// Detector decides whether a candidate window is free for a doctor or patient.
// It loads the resource's active appointments and scans in memory; the
// database exclusion constraints remain the authority under concurrency.
type Detector struct {
	store activeLister
}

// NewDetector creates a conflict detector over the appointment store.
func NewDetector(store activeLister) *Detector {
	return &Detector{store: store}
}

// IsAvailable reports whether the window [start, start+duration) is free for
// the resource. excludeID skips one appointment, used during updates.
// Read-only; the first overlapping active appointment decides.
func (d *Detector) IsAvailable(ctx context.Context, tenantID string, kind ResourceKind, resourceID uuid.UUID, start time.Time, duration time.Duration, excludeID *uuid.UUID) (bool, error) {
	existing, err := d.store.ListActiveForResource(ctx, tenantID, kind, resourceID, excludeID)
	if err != nil {
		return false, fmt.Errorf("appointments: list active for %s: %w", kind, err)
	}
	end := start.Add(duration)
	for i := range existing {
		other := &existing[i]
		if Overlaps(start, end, other.StartTime, other.EndTime()) {
			return false, nil
		}
	}
	return true, nil
}
