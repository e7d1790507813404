package get_available_slots

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
)

const (
	msgInvalidServiceID = "некорректный ID услуги"
	msgMissingDate      = "дата обязательна"
)

type Handler struct {
	useCase GetAvailableSlotsUseCase
	logger  Logger
}

func NewHandler(useCase GetAvailableSlotsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/services/{serviceId}/available-slots
// Query params: date (required, YYYY-MM-DD), staffId, step
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	serviceID, err := handlers.PathInt64(r, "serviceId")
	if err != nil {
		h.logger.Warn("GET /services/{id}/available-slots - Invalid service ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidServiceID)
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		h.logger.Warn("GET /services/{id}/available-slots - Missing date")
		handlers.RespondBadRequest(w, msgMissingDate)
		return
	}

	staffID, err := handlers.QueryInt64(r, "staffId")
	if err != nil {
		h.logger.Warn("GET /services/{id}/available-slots - Invalid staff ID: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}
	step, err := handlers.QueryInt(r, "step", 0)
	if err != nil {
		h.logger.Warn("GET /services/{id}/available-slots - Invalid step: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	// Формируем запрос к use case (с парсингом даты)
	useCaseReq, err := ToUseCaseRequest(serviceID, dateStr, staffID, step)
	if err != nil {
		h.logger.Warn("GET /services/{id}/available-slots - Invalid date format: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("GET /services/{id}/available-slots - Failed to get slots: service_id=%d, error=%v", serviceID, err)
		} else {
			h.logger.Warn("GET /services/{id}/available-slots - Rejected: service_id=%d, error=%v", serviceID, err)
		}
		return
	}

	h.logger.Info("GET /services/{id}/available-slots - Slots retrieved successfully: service_id=%d, date=%s, slots_count=%d",
		serviceID, dateStr, len(result.Slots))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
