package revert_completion

import (
	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	revertCompletion "github.com/m04kA/SMC-ClinicService/internal/usecase/revert_completion"
)

// RevertCompletionRequest HTTP request model, тело необязательно
type RevertCompletionRequest struct {
	Note *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// RevertCompletionResponse HTTP response model
type RevertCompletionResponse struct {
	Appointment    *handlers.AppointmentResponse `json:"appointment"`
	Reverted       bool                          `json:"reverted"`
	RestoredAmount int                           `json:"restoredAmount"`
	Events         []handlers.EventResponse      `json:"events"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *revertCompletion.Response) *RevertCompletionResponse {
	return &RevertCompletionResponse{
		Appointment:    handlers.NewAppointmentResponse(resp.Appointment),
		Reverted:       resp.Reverted,
		RestoredAmount: resp.RestoredAmount,
		Events:         handlers.NewEventResponses(resp.Events),
	}
}
