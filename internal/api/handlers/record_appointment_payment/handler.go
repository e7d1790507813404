package record_appointment_payment

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

// Handle POST /api/v1/appointments/{appointmentId}/payments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/payments - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req RecordPaymentRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/payments - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	serviceReq, err := req.ToServiceRequest(appointmentID, middleware.ActorID(r.Context()))
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/payments - Invalid method: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	// Сумма и валюта проверяются сервисом
	result, err := h.service.RecordPayment(r.Context(), serviceReq)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("POST /appointments/{id}/payments - Failed to record payment: appointment_id=%d, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("POST /appointments/{id}/payments - Rejected: appointment_id=%d, amount=%s, error=%v",
				appointmentID, req.Amount.String(), err)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/payments - Payment recorded successfully: appointment_id=%d, payment_id=%d, remaining=%s",
		appointmentID, result.Payment.ID, result.RemainingToPay.StringFixed(2))
	handlers.RespondJSON(w, http.StatusCreated, FromResult(result))
}
