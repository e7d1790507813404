package list_appointments

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
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

// Handle GET /api/v1/appointments
// Query params: userId, staffId, date, status, upcoming, limit, offset
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	req, err := ToServiceRequest(r)
	if err != nil {
		h.logger.Warn("GET /appointments - Invalid query: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	list, err := h.service.List(r.Context(), req)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("GET /appointments - Failed to list appointments: %v", err)
		} else {
			h.logger.Warn("GET /appointments - Rejected: %v", err)
		}
		return
	}

	h.logger.Info("GET /appointments - Appointments retrieved successfully: count=%d", len(list))
	handlers.RespondJSON(w, http.StatusOK, FromAppointments(req, list))
}
