package delete_appointment

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/api/middleware"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle DELETE /api/v1/appointments/{appointmentId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("DELETE /appointments/{id} - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	if err := h.service.Delete(r.Context(), appointmentID, middleware.ActorID(r.Context())); err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("DELETE /appointments/{id} - Failed to delete: appointment_id=%d, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("DELETE /appointments/{id} - Rejected: appointment_id=%d, error=%v", appointmentID, err)
		}
		return
	}

	h.logger.Info("DELETE /appointments/{id} - Appointment deleted successfully: appointment_id=%d", appointmentID)
	handlers.RespondNoContent(w)
}
