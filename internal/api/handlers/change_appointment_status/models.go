package change_appointment_status

import (
	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
	appointmentTransitions "github.com/m04kA/SMC-ClinicService/internal/usecase/appointment_transitions"
)

// ChangeStatusRequest HTTP request model
type ChangeStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
	StaffID *int64 `json:"staffId,omitempty" validate:"omitempty,gt=0"`
}

// ChangeStatusResponse HTTP response model
type ChangeStatusResponse struct {
	Appointment *handlers.AppointmentResponse `json:"appointment"`
	Events      []handlers.EventResponse      `json:"events"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *ChangeStatusRequest) ToUseCaseRequest(appointmentID int64, actorID *int64) (*appointmentTransitions.Request, error) {
	status, err := domain.ParseAppointmentStatus(r.Status)
	if err != nil {
		return nil, err
	}
	return &appointmentTransitions.Request{
		AppointmentID: appointmentID,
		Status:        status,
		ActorID:       actorID,
		StaffID:       r.StaffID,
	}, nil
}

// FromResult конвертирует результат перехода в HTTP response
func FromResult(result *domain.TransitionResult) *ChangeStatusResponse {
	return &ChangeStatusResponse{
		Appointment: handlers.NewAppointmentResponse(result.Appointment),
		Events:      handlers.NewEventResponses(result.Events),
	}
}
