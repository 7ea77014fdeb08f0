package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"medportal/internal/appointments/service"
	"medportal/internal/sweeper"
	httputil "medportal/pkg/http"
	"medportal/pkg/logger"
	"medportal/pkg/model"
)

const opportunisticSweepTimeout = 30 * time.Second

type AppointmentHandler struct {
	service service.AppointmentService
	sweeper sweeper.Sweeper
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, sweeper sweeper.Sweeper, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		sweeper: sweeper,
		log:     log,
	}
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Book", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	appointment, err := h.service.Book(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, appointment); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "SetStatus", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	appointment, err := h.service.Get(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.SetStatus(r.Context(), id, req.Status); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	go h.sweepDoctor(appointment.DoctorID)

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) ListForDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := ps.ByName("id")

	// The dashboard view doubles as a sweep trigger.
	go h.sweepDoctor(doctorID)

	appointments, err := h.service.ListForDoctor(r.Context(), doctorID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListForDoctor", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteList(w, appointments, len(appointments)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListForDoctor", "operation", "WriteList", "error", err)
	}
}

func (h *AppointmentHandler) ListForPatient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appointments, err := h.service.ListForPatient(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListForPatient", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteList(w, appointments, len(appointments)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListForPatient", "operation", "WriteList", "error", err)
	}
}

func (h *AppointmentHandler) sweepDoctor(doctorID string) {
	ctx, cancel := context.WithTimeout(context.Background(), opportunisticSweepTimeout)
	defer cancel()

	now := time.Now()
	if _, err := h.sweeper.Sweep(ctx, doctorID, now); err != nil {
		h.log.Warn("opportunistic sweep failed", "doctor_id", doctorID, "error", err)
	}
	if _, err := h.sweeper.CompletePastAppointments(ctx, doctorID, now); err != nil {
		h.log.Warn("opportunistic appointment check failed", "doctor_id", doctorID, "error", err)
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Book)
	router.PATCH("/api/v1/appointments/id/:id/status", h.SetStatus)
	router.GET("/api/v1/appointments/doctor/:id", h.ListForDoctor)
	router.GET("/api/v1/appointments/patient/:id", h.ListForPatient)
}
