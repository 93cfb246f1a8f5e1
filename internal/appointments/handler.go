package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/tenancy"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// Handler handles HTTP requests for appointments
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /appointments requests
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}

	var input CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	input.TenantID = tenantID

	appt, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, r, "create appointment", err)
		return
	}

	writeJSON(w, http.StatusCreated, appt)
}

// Get handles GET /appointments/{id} requests
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	appt, err := h.service.GetByID(r.Context(), tenantID, id)
	if err != nil {
		h.writeError(w, r, "get appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Update handles PATCH /appointments/{id} requests
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	var changes Changes
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Update(r.Context(), tenantID, id, changes)
	if err != nil {
		h.writeError(w, r, "update appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Cancel handles POST /appointments/{id}/cancel requests
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Cancel(r.Context(), tenantID, id)
	if err != nil {
		h.writeError(w, r, "cancel appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// UpdateStatusRequest is the body for status transitions.
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus handles POST /appointments/{id}/status requests
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Transition(r.Context(), tenantID, id, req.Status)
	if err != nil {
		h.writeError(w, r, "transition appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListResponse is the response for appointment listings
type ListResponse struct {
	Appointments []Appointment `json:"appointments"`
	Count        int           `json:"count"`
}

// ListByDoctor handles GET /doctors/{doctorID}/appointments requests.
// The window defaults to the next 24 hours; from is inclusive, to exclusive.
func (h *Handler) ListByDoctor(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid from timestamp", http.StatusBadRequest)
			return
		}
		from = t
		to = from.Add(24 * time.Hour)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid to timestamp", http.StatusBadRequest)
			return
		}
		to = t
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	appts, err := h.service.ListByDoctor(r.Context(), tenantID, doctorID, from, to)
	if err != nil {
		h.writeError(w, r, "list doctor appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Appointments: appts, Count: len(appts)})
}

// ListByPatient handles GET /patients/{patientID}/appointments requests
func (h *Handler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusBadRequest)
		return
	}
	patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return
	}
	includeCancelled := r.URL.Query().Get("include_cancelled") == "true"

	appts, err := h.service.ListByPatient(r.Context(), tenantID, patientID, includeCancelled)
	if err != nil {
		h.writeError(w, r, "list patient appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Appointments: appts, Count: len(appts)})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var conflict *ConflictError
	var invalid *InvalidTransitionError
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    "time slot unavailable",
			"resource": conflict.Resource,
			"start":    conflict.Start,
			"end":      conflict.End,
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(),
			"from":  invalid.From,
			"to":    invalid.To,
		})
	case errors.Is(err, ErrInvalidDuration):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("appointment request failed", "op", op, "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
