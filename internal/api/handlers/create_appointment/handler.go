package create_appointment

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/api/middleware"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type Handler struct {
	useCase CreateAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase CreateAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := handlers.DecodeAndValidate(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request: %v", err)
		handlers.RespondInvalidRequest(w, err)
		return
	}

	actorID := middleware.ActorID(r.Context())

	// Конвертируем HTTP запрос в модель use case (с парсингом даты и времени)
	useCaseReq, err := req.ToUseCaseRequest(actorID, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		h.logger.Warn("POST /appointments - Failed to parse request: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("POST /appointments - Failed to create appointment: service_id=%d, date=%s, start=%s, error=%v",
				req.ServiceID, req.Date, req.StartTime, err)
		} else {
			h.logger.Warn("POST /appointments - Rejected: service_id=%d, date=%s, start=%s, error=%v",
				req.ServiceID, req.Date, req.StartTime, err)
		}
		return
	}

	status := http.StatusCreated
	if result.Idempotent {
		status = http.StatusOK
	}

	h.logger.Info("POST /appointments - Appointment created successfully: appointment_id=%d, reference=%s, idempotent=%t",
		result.Appointment.ID, result.Appointment.ReferenceCode, result.Idempotent)
	handlers.RespondJSON(w, status, FromUseCaseResponse(result))
}
