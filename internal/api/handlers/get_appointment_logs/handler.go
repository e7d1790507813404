package get_appointment_logs

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
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

// Handle GET /api/v1/appointments/{appointmentId}/logs
// Query params: action, since, until, limit, offset
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("GET /appointments/{id}/logs - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	filter, err := ToFilter(appointmentID, r)
	if err != nil {
		h.logger.Warn("GET /appointments/{id}/logs - Invalid filter: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	logs, err := h.service.ListLogs(r.Context(), filter)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("GET /appointments/{id}/logs - Failed to list logs: appointment_id=%d, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("GET /appointments/{id}/logs - Rejected: appointment_id=%d, error=%v", appointmentID, err)
		}
		return
	}

	h.logger.Info("GET /appointments/{id}/logs - Logs retrieved successfully: appointment_id=%d, count=%d", appointmentID, len(logs))
	handlers.RespondJSON(w, http.StatusOK, FromLogs(filter, logs))
}
