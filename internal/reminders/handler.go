package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/appointments"
	"github.com/wolfman30/clinic-scheduling-platform/internal/notify"
	"github.com/wolfman30/clinic-scheduling-platform/internal/tenancy"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

type reminderLister interface {
	ListByAppointment(ctx context.Context, tenantID string, appointmentID uuid.UUID) ([]Reminder, error)
}

// Handler handles HTTP requests for reminders
type Handler struct {
	planner    *Planner
	lister     reminderLister
	dispatcher *Dispatcher
	appts      appointmentSource
	logger     *logging.Logger
}

// NewHandler creates a new reminders handler
func NewHandler(planner *Planner, lister reminderLister, dispatcher *Dispatcher, appts appointmentSource, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		planner:    planner,
		lister:     lister,
		dispatcher: dispatcher,
		appts:      appts,
		logger:     logger,
	}
}

// PlanRequest is the body for scheduling reminders against an appointment.
type PlanRequest struct {
	Channels    []notify.Channel `json:"channels"`
	HoursBefore []int            `json:"hours_before"`
}

// PlanResponse reports the reminders actually created.
type PlanResponse struct {
	Reminders []Reminder `json:"reminders"`
	Count     int        `json:"count"`
}

// Plan handles POST /appointments/{id}/reminders requests
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}
	apptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Channels) == 0 || len(req.HoursBefore) == 0 {
		http.Error(w, "channels and hours_before are required", http.StatusBadRequest)
		return
	}

	appt, err := h.appts.GetForTenant(r.Context(), tenantID, apptID)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load appointment for reminders failed", "appointment_id", apptID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	planned, err := h.planner.Plan(r.Context(), appt, req.Channels, req.HoursBefore)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, PlanResponse{Reminders: planned, Count: len(planned)})
}

// List handles GET /appointments/{id}/reminders requests
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}
	apptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	list, err := h.lister.ListByAppointment(r.Context(), tenantID, apptID)
	if err != nil {
		h.logger.Error("list reminders failed", "appointment_id", apptID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, PlanResponse{Reminders: list, Count: len(list)})
}

// ProcessDue handles POST /admin/reminders/process requests. Admin-only;
// runs one dispatch cycle, optionally scoped by ?tenant_id=.
func (h *Handler) ProcessDue(w http.ResponseWriter, r *http.Request) {
	var tenantID *string
	if v := r.URL.Query().Get("tenant_id"); v != "" {
		tenantID = &v
	}

	stats, err := h.dispatcher.ProcessDue(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("manual dispatch cycle failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
