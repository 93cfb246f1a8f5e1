package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/appointments"
	"github.com/wolfman30/clinic-scheduling-platform/internal/directory"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// routerStore is a minimal in-memory appointment store for routing tests.
type routerStore struct {
	rows map[uuid.UUID]*appointments.Appointment
}

func (m *routerStore) Create(ctx context.Context, a *appointments.Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *routerStore) GetForTenant(ctx context.Context, tenantID string, id uuid.UUID) (*appointments.Appointment, error) {
	a, ok := m.rows[id]
	if !ok || a.TenantID != tenantID {
		return nil, appointments.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *routerStore) ApplyChanges(ctx context.Context, tenantID string, id uuid.UUID, changes appointments.Changes) (*appointments.Appointment, error) {
	return m.GetForTenant(ctx, tenantID, id)
}

func (m *routerStore) UpdateStatus(ctx context.Context, tenantID string, id uuid.UUID, from, to appointments.Status) (bool, error) {
	a, ok := m.rows[id]
	if !ok || a.TenantID != tenantID || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (m *routerStore) ListActiveForResource(ctx context.Context, tenantID string, kind appointments.ResourceKind, resourceID uuid.UUID, excludeID *uuid.UUID) ([]appointments.Appointment, error) {
	var out []appointments.Appointment
	for _, a := range m.rows {
		if a.TenantID != tenantID || !a.Status.IsActive() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if (kind == appointments.ResourceDoctor && a.DoctorID == resourceID) ||
			(kind == appointments.ResourcePatient && a.PatientID == resourceID) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *routerStore) ListByDoctor(ctx context.Context, tenantID string, doctorID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error) {
	return nil, nil
}

func (m *routerStore) ListByPatient(ctx context.Context, tenantID string, patientID uuid.UUID, includeCancelled bool) ([]appointments.Appointment, error) {
	return nil, nil
}

type routerFixture struct {
	handler   http.Handler
	patientID uuid.UUID
	doctorID  uuid.UUID
}

func newTestRouter(t *testing.T) *routerFixture {
	t.Helper()

	logger := logging.Default()
	lookup := directory.NewInMemoryLookup()
	patientID := uuid.New()
	doctorID := uuid.New()
	lookup.AddPatient(&directory.Patient{ID: patientID, TenantID: "tenant-1", FullName: "Jordan Reyes", Email: "jordan@example.com"})
	lookup.AddDoctor(&directory.Doctor{ID: doctorID, TenantID: "tenant-1", FullName: "Dr. Okafor"})

	store := &routerStore{rows: make(map[uuid.UUID]*appointments.Appointment)}
	service := appointments.NewService(store, lookup, nil, nil, nil, logger)

	cfg := &Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(service, logger),
		AdminAuthSecret:     "test-secret",
	}
	return &routerFixture{
		handler:   New(cfg),
		patientID: patientID,
		doctorID:  doctorID,
	}
}

func (f *routerFixture) bookRequest(t *testing.T, start time.Time) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"patient_id":       f.patientID,
		"doctor_id":        f.doctorID,
		"start_time":       start,
		"duration_minutes": 30,
		"reason":           "checkup",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "tenant-1")
	return req
}

func TestRouterHealthEndpoint(t *testing.T) {
	f := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterBookAppointment(t *testing.T) {
	f := newTestRouter(t)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, f.bookRequest(t, time.Now().UTC().Add(48*time.Hour)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var appt appointments.Appointment
	if err := json.NewDecoder(rr.Body).Decode(&appt); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if appt.Status != appointments.StatusScheduled {
		t.Errorf("expected scheduled status, got %s", appt.Status)
	}
}

func TestRouterDoubleBookingConflicts(t *testing.T) {
	f := newTestRouter(t)
	start := time.Now().UTC().Add(48 * time.Hour)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, f.bookRequest(t, start))
	if rr.Code != http.StatusCreated {
		t.Fatalf("first booking failed: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	f.handler.ServeHTTP(rr, f.bookRequest(t, start.Add(15*time.Minute)))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d: %s", http.StatusConflict, rr.Code, rr.Body.String())
	}
}

func TestRouterRequiresTenantHeader(t *testing.T) {
	f := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader([]byte("{}")))
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestRouterCrossTenantLookupIs404(t *testing.T) {
	f := newTestRouter(t)
	start := time.Now().UTC().Add(48 * time.Hour)

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, f.bookRequest(t, start))
	var appt appointments.Appointment
	if err := json.NewDecoder(rr.Body).Decode(&appt); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	req.Header.Set("X-Tenant-Id", "tenant-2")
	rr = httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
