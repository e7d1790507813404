package appointment_package

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

// HandleAttach POST /api/v1/appointments/{appointmentId}/package
func (h *Handler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/package - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req AttachPackageRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/package - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	appt, err := h.service.AttachPackage(r.Context(), appointmentID, req.PackageID, middleware.ActorID(r.Context()))
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("POST /appointments/{id}/package - Failed to attach: appointment_id=%d, package_id=%d, error=%v",
				appointmentID, req.PackageID, err)
		} else {
			h.logger.Warn("POST /appointments/{id}/package - Rejected: appointment_id=%d, package_id=%d, error=%v",
				appointmentID, req.PackageID, err)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/package - Package attached successfully: appointment_id=%d, package_id=%d",
		appointmentID, req.PackageID)
	handlers.RespondJSON(w, http.StatusOK, handlers.NewAppointmentResponse(appt))
}

// HandleDetach DELETE /api/v1/appointments/{appointmentId}/package
func (h *Handler) HandleDetach(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("DELETE /appointments/{id}/package - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	appt, err := h.service.DetachPackage(r.Context(), appointmentID, middleware.ActorID(r.Context()))
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("DELETE /appointments/{id}/package - Failed to detach: appointment_id=%d, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("DELETE /appointments/{id}/package - Rejected: appointment_id=%d, error=%v", appointmentID, err)
		}
		return
	}

	h.logger.Info("DELETE /appointments/{id}/package - Package detached successfully: appointment_id=%d", appointmentID)
	handlers.RespondJSON(w, http.StatusOK, handlers.NewAppointmentResponse(appt))
}
