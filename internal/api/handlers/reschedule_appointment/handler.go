package reschedule_appointment

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/api/middleware"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
)

type Handler struct {
	useCase RescheduleUseCase
	logger  Logger
}

func NewHandler(useCase RescheduleUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/appointments/{appointmentId}/reschedule
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/reschedule - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req RescheduleRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("PATCH /appointments/{id}/reschedule - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(appointmentID, middleware.ActorID(r.Context()))
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/reschedule - Failed to parse request: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	result, err := h.useCase.Reschedule(r.Context(), useCaseReq)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("PATCH /appointments/{id}/reschedule - Failed to reschedule: appointment_id=%d, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("PATCH /appointments/{id}/reschedule - Rejected: appointment_id=%d, date=%s, start=%s, error=%v",
				appointmentID, req.Date, req.StartTime, err)
		}
		return
	}

	h.logger.Info("PATCH /appointments/{id}/reschedule - Appointment rescheduled successfully: appointment_id=%d, date=%s, start=%s",
		appointmentID, req.Date, result.Appointment.StartTime)
	handlers.RespondJSON(w, http.StatusOK, handlers.NewAppointmentResponse(result.Appointment))
}

// HandleAssignStaff PATCH /api/v1/appointments/{appointmentId}/staff
func (h *Handler) HandleAssignStaff(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("PATCH /appointments/{id}/staff - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req AssignStaffRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("PATCH /appointments/{id}/staff - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	result, err := h.useCase.AssignStaff(r.Context(), req.ToUseCaseRequest(appointmentID, middleware.ActorID(r.Context())))
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("PATCH /appointments/{id}/staff - Failed to assign staff: appointment_id=%d, staff_id=%d, error=%v",
				appointmentID, req.StaffID, err)
		} else {
			h.logger.Warn("PATCH /appointments/{id}/staff - Rejected: appointment_id=%d, staff_id=%d, error=%v",
				appointmentID, req.StaffID, err)
		}
		return
	}

	h.logger.Info("PATCH /appointments/{id}/staff - Staff assigned successfully: appointment_id=%d, staff_id=%d",
		appointmentID, req.StaffID)
	handlers.RespondJSON(w, http.StatusOK, handlers.NewAppointmentResponse(result.Appointment))
}
