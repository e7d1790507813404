package change_appointment_status

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/api/middleware"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
)

type Handler struct {
	useCase TransitionsUseCase
	logger  Logger
}

func NewHandler(useCase TransitionsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/appointments/{appointmentId}/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req ChangeStatusRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(appointmentID, middleware.ActorID(r.Context()))
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/status - Invalid status: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	// Use case сам выбирает операцию (Confirm, Complete, Cancel, NoShow) по целевому статусу
	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("PATCH /appointments/{id}/status - Failed to change status: appointment_id=%d, status=%s, error=%v",
				appointmentID, req.Status, err)
		} else {
			h.logger.Warn("PATCH /appointments/{id}/status - Rejected: appointment_id=%d, status=%s, error=%v",
				appointmentID, req.Status, err)
		}
		return
	}

	h.logger.Info("PATCH /appointments/{id}/status - Status changed successfully: appointment_id=%d, status=%s, events=%d",
		appointmentID, result.Appointment.Status, len(result.Events))
	handlers.RespondJSON(w, http.StatusOK, FromResult(result))
}
