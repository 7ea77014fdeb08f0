package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medportal/internal/availability/service"
	httputil "medportal/pkg/http"
	"medportal/pkg/logger"
)

type slotsPayload struct {
	Slots []string `json:"slots"`
}

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Get", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slotsPayload{Slots: slots}); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Add(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var payload slotsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Add", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	slots, err := h.service.Add(r.Context(), ps.ByName("id"), payload.Slots)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Add", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slotsPayload{Slots: slots}); err != nil {
		h.log.Error("failed to write success response", "handler", "Add", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Remove(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := h.service.Remove(r.Context(), ps.ByName("id"), r.URL.Query().Get("slot"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Remove", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slotsPayload{Slots: slots}); err != nil {
		h.log.Error("failed to write success response", "handler", "Remove", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/doctors/id/:id/slots", h.Get)
	router.POST("/api/v1/doctors/id/:id/slots", h.Add)
	router.DELETE("/api/v1/doctors/id/:id/slots", h.Remove)
}
