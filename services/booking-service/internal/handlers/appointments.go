package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/storage"
)

// Store is the record store behind the appointment endpoints.
type Store interface {
	Create(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	Confirm(ctx context.Context, id string, at time.Time) (model.Appointment, error)
	Delete(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, status model.Status) ([]model.Appointment, error)
}

// Notifier receives committed mutations for the admin push channel.
type Notifier interface {
	OnCreated(ctx context.Context, appt model.Appointment)
	OnConfirmed(ctx context.Context, appt model.Appointment)
	OnCancelled(ctx context.Context, id string)
}

type AppointmentHandler struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

func NewAppointmentHandler(store Store, notifier Notifier, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		store:    store,
		notifier: notifier,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Register mounts the appointment routes on mux.
func (h *AppointmentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/appointments", h.Create)
	mux.HandleFunc("GET /api/admin/appointments", h.List)
	mux.HandleFunc("PATCH /api/admin/appointments/{id}", h.UpdateStatus)
	mux.HandleFunc("DELETE /api/admin/appointments/{id}", h.Delete)
}

type createAppointmentRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Service string `json:"service"`
}

type createAppointmentResponse struct {
	Success     bool              `json:"success"`
	Appointment model.Appointment `json:"appointment"`
}

type listAppointmentsResponse struct {
	Appointments []model.Appointment `json:"appointments"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type deleteAppointmentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := decodeBody(r, &req); err != nil {
		status, msg := bodyStatus(err)
		writeError(w, status, msg)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" {
		writeError(w, http.StatusBadRequest, "Name and phone are required")
		return
	}

	ctx := r.Context()
	appt := model.NewAppointment(h.newID(), req.Name, req.Phone, req.Address, req.Email, req.Service, h.now())
	saved, err := h.store.Create(ctx, appt)
	if err != nil {
		h.internalError(w, "create appointment failed", err)
		return
	}
	h.logger.Info("appointment booked", "appointment_id", saved.ID, "service", saved.Service)
	h.notifier.OnCreated(ctx, saved)

	writeJSON(w, http.StatusCreated, createAppointmentResponse{Success: true, Appointment: saved})
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	status, ok := model.ParseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid status filter")
		return
	}
	appts, err := h.store.List(r.Context(), status)
	if err != nil {
		h.internalError(w, "list appointments failed", err)
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, listAppointmentsResponse{Appointments: appts})
}

// UpdateStatus confirms an appointment. Confirmed is the only accepted
// target status.
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		status, msg := bodyStatus(err)
		writeError(w, status, msg)
		return
	}
	if model.Status(req.Status) != model.StatusConfirmed {
		writeError(w, http.StatusBadRequest, "Invalid status update")
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	updated, err := h.store.Confirm(ctx, id, h.now())
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Appointment not found")
			return
		}
		h.internalError(w, "confirm appointment failed", err)
		return
	}
	h.logger.Info("appointment confirmed", "appointment_id", updated.ID)
	h.notifier.OnConfirmed(ctx, updated)

	writeJSON(w, http.StatusOK, updated)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if err := h.store.Delete(ctx, id, h.now()); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Appointment not found")
			return
		}
		h.internalError(w, "delete appointment failed", err)
		return
	}
	h.logger.Info("appointment cancelled", "appointment_id", id)
	h.notifier.OnCancelled(ctx, id)

	writeJSON(w, http.StatusOK, deleteAppointmentResponse{Success: true, Message: "Appointment deleted"})
}

func (h *AppointmentHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "err", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
