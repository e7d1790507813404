package update_appointment_notes

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/api/middleware"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgInvalidRequestBody   = "некорректное тело запроса"
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

// Handle PATCH /api/v1/appointments/{appointmentId}/notes
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/notes - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req UpdateNotesRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /appointments/{id}/notes - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Длины и пустой набор полей проверяет сервис
	appt, err := h.service.UpdateDetails(r.Context(), appointmentID, req.ToUpdate(), middleware.ActorID(r.Context()))
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("PATCH /appointments/{id}/notes - Failed to update: appointment_id=%d, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("PATCH /appointments/{id}/notes - Rejected: appointment_id=%d, error=%v", appointmentID, err)
		}
		return
	}

	h.logger.Info("PATCH /appointments/{id}/notes - Appointment updated successfully: appointment_id=%d", appointmentID)
	handlers.RespondJSON(w, http.StatusOK, handlers.NewAppointmentResponse(appt))
}
