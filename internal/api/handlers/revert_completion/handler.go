package revert_completion

import (
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/api/middleware"
	revertCompletion "github.com/m04kA/SMC-ClinicService/internal/usecase/revert_completion"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
)

type Handler struct {
	useCase RevertCompletionUseCase
	logger  Logger
}

func NewHandler(useCase RevertCompletionUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/admin/appointments/{appointmentId}/revert-completion
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("POST /admin/appointments/{id}/revert-completion - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	var req RevertCompletionRequest
	if r.ContentLength != 0 {
		if err := handlers.DecodeAndValidate(r, &req); err != nil {
			h.logger.Warn("POST /admin/appointments/{id}/revert-completion - Invalid request: %v", err)
			handlers.RespondInvalidRequest(w, err)
			return
		}
	}

	result, err := h.useCase.Execute(r.Context(), &revertCompletion.Request{
		AppointmentID: appointmentID,
		ActorID:       middleware.ActorID(r.Context()),
		Note:          req.Note,
	})
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("POST /admin/appointments/{id}/revert-completion - Failed to revert: appointment_id=%d, error=%v", appointmentID, err)
		} else {
			h.logger.Warn("POST /admin/appointments/{id}/revert-completion - Rejected: appointment_id=%d, error=%v", appointmentID, err)
		}
		return
	}

	h.logger.Info("POST /admin/appointments/{id}/revert-completion - Done: appointment_id=%d, reverted=%t, restored=%d",
		appointmentID, result.Reverted, result.RestoredAmount)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
