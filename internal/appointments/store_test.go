package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var apptCols = []string{"id", "tenant_id", "patient_id", "doctor_id", "start_time", "duration_minutes", "status", "reason", "notes", "created_at", "updated_at"}

func apptRow(a *Appointment) *pgxmock.Rows {
	return pgxmock.NewRows(apptCols).AddRow(
		a.ID, a.TenantID, a.PatientID, a.DoctorID,
		a.StartTime, a.DurationMinutes, string(a.Status),
		a.Reason, a.Notes, a.CreatedAt, a.UpdatedAt,
	)
}

func TestStoreCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	a := &Appointment{
		TenantID:        "tenant-1",
		PatientID:       uuid.New(),
		DoctorID:        uuid.New(),
		StartTime:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Reason:          "follow-up",
	}
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), a.TenantID, a.PatientID, a.DoctorID, a.StartTime, 30,
			"scheduled", "follow-up", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.Create(context.Background(), a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == uuid.Nil {
		t.Fatal("expected id assigned")
	}
	if a.Status != StatusScheduled {
		t.Fatalf("expected scheduled status, got %s", a.Status)
	}
}

func TestStoreCreateMapsExclusionViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	a := &Appointment{
		TenantID:        "tenant-1",
		PatientID:       uuid.New(),
		DoctorID:        uuid.New(),
		StartTime:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
	}
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), a.TenantID, a.PatientID, a.DoctorID, a.StartTime, 30,
			"scheduled", "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "appointments_patient_no_overlap"})

	err = store.Create(context.Background(), a)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Resource != ResourcePatient {
		t.Fatalf("expected patient conflict, got %s", conflict.Resource)
	}
}

func TestStoreGetForTenant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	want := &Appointment{
		ID: uuid.New(), TenantID: "tenant-1", PatientID: uuid.New(), DoctorID: uuid.New(),
		StartTime: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), DurationMinutes: 45,
		Status: StatusConfirmed, Reason: "checkup",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs("tenant-1", want.ID).
		WillReturnRows(apptRow(want))

	got, err := store.GetForTenant(context.Background(), "tenant-1", want.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != want.ID || got.Status != StatusConfirmed || got.DurationMinutes != 45 {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestStoreGetForTenantNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs("tenant-other", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(apptCols))

	_, err = store.GetForTenant(context.Background(), "tenant-other", uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreApplyChanges(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	id := uuid.New()
	newStart := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	reason := "rescheduled"
	updated := &Appointment{
		ID: id, TenantID: "tenant-1", PatientID: uuid.New(), DoctorID: uuid.New(),
		StartTime: newStart, DurationMinutes: 30, Status: StatusScheduled, Reason: reason,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	mock.ExpectQuery("UPDATE appointments SET").
		WithArgs("tenant-1", id, pgxmock.AnyArg(), newStart, reason).
		WillReturnRows(apptRow(updated))

	got, err := store.ApplyChanges(context.Background(), "tenant-1", id, Changes{StartTime: &newStart, Reason: &reason})
	if err != nil {
		t.Fatalf("apply changes: %v", err)
	}
	if !got.StartTime.Equal(newStart) || got.Reason != reason {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestStoreUpdateStatusGuard(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("confirmed", pgxmock.AnyArg(), "tenant-1", id, "scheduled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.UpdateStatus(context.Background(), "tenant-1", id, StatusScheduled, StatusConfirmed)
	if err != nil || !ok {
		t.Fatalf("expected guard match, got ok=%v err=%v", ok, err)
	}

	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs("confirmed", pgxmock.AnyArg(), "tenant-1", id, "scheduled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = store.UpdateStatus(context.Background(), "tenant-1", id, StatusScheduled, StatusConfirmed)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if ok {
		t.Fatal("expected guard miss when status already moved")
	}
}

func TestStoreListActiveForResourceExcludes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	doctorID := uuid.New()
	excludeID := uuid.New()
	kept := &Appointment{
		ID: uuid.New(), TenantID: "tenant-1", PatientID: uuid.New(), DoctorID: doctorID,
		StartTime: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), DurationMinutes: 30,
		Status: StatusScheduled, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs("tenant-1", doctorID, excludeID).
		WillReturnRows(apptRow(kept))

	got, err := store.ListActiveForResource(context.Background(), "tenant-1", ResourceDoctor, doctorID, &excludeID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(got) != 1 || got[0].ID != kept.ID {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestStoreListByDoctorWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	store := NewStore(mock)

	doctorID := uuid.New()
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs("tenant-1", doctorID, from, to).
		WillReturnRows(pgxmock.NewRows(apptCols))

	got, err := store.ListByDoctor(context.Background(), "tenant-1", doctorID, from, to)
	if err != nil {
		t.Fatalf("list by doctor: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty day, got %d rows", len(got))
	}
}
