package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical windows", at(0), at(30), at(0), at(30), true},
		{"partial overlap", at(0), at(30), at(15), at(45), true},
		{"contained window", at(0), at(60), at(15), at(30), true},
		{"abutting after", at(0), at(30), at(30), at(60), false},
		{"abutting before", at(30), at(60), at(0), at(30), false},
		{"disjoint", at(0), at(30), at(90), at(120), false},
		{"one minute overlap", at(0), at(31), at(30), at(60), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Fatalf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeActiveLister struct {
	appointments []Appointment
	gotExclude   *uuid.UUID
	err          error
}

func (f *fakeActiveLister) ListActiveForResource(ctx context.Context, tenantID string, kind ResourceKind, resourceID uuid.UUID, excludeID *uuid.UUID) ([]Appointment, error) {
	f.gotExclude = excludeID
	if f.err != nil {
		return nil, f.err
	}
	if excludeID == nil {
		return f.appointments, nil
	}
	var out []Appointment
	for _, a := range f.appointments {
		if a.ID != *excludeID {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestDetectorRejectsOverlap(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	doctorID := uuid.New()
	lister := &fakeActiveLister{appointments: []Appointment{{
		ID: uuid.New(), DoctorID: doctorID, StartTime: start, DurationMinutes: 30, Status: StatusScheduled,
	}}}
	detector := NewDetector(lister)

	free, err := detector.IsAvailable(context.Background(), "tenant-1", ResourceDoctor, doctorID, start.Add(15*time.Minute), 30*time.Minute, nil)
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if free {
		t.Fatal("expected 10:15-10:45 to conflict with 10:00-10:30")
	}
}

func TestDetectorAllowsAbutting(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	doctorID := uuid.New()
	lister := &fakeActiveLister{appointments: []Appointment{{
		ID: uuid.New(), DoctorID: doctorID, StartTime: start, DurationMinutes: 30, Status: StatusScheduled,
	}}}
	detector := NewDetector(lister)

	free, err := detector.IsAvailable(context.Background(), "tenant-1", ResourceDoctor, doctorID, start.Add(30*time.Minute), 30*time.Minute, nil)
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if !free {
		t.Fatal("expected back-to-back 10:30-11:00 booking to be available")
	}
}

func TestDetectorExcludesSelfDuringUpdate(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	doctorID := uuid.New()
	apptID := uuid.New()
	lister := &fakeActiveLister{appointments: []Appointment{{
		ID: apptID, DoctorID: doctorID, StartTime: start, DurationMinutes: 30, Status: StatusScheduled,
	}}}
	detector := NewDetector(lister)

	free, err := detector.IsAvailable(context.Background(), "tenant-1", ResourceDoctor, doctorID, start.Add(10*time.Minute), 30*time.Minute, &apptID)
	if err != nil {
		t.Fatalf("IsAvailable: %v", err)
	}
	if !free {
		t.Fatal("expected window to be free when conflicting row is the one being updated")
	}
	if lister.gotExclude == nil || *lister.gotExclude != apptID {
		t.Fatal("expected exclude id passed to store")
	}
}
