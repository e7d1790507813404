package reschedule_appointment

import (
	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
	rescheduleAppointment "github.com/m04kA/SMC-ClinicService/internal/usecase/reschedule_appointment"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// RescheduleRequest HTTP request model
type RescheduleRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
}

// AssignStaffRequest HTTP request model
type AssignStaffRequest struct {
	StaffID int64 `json:"staffId" validate:"required,gt=0"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *RescheduleRequest) ToUseCaseRequest(appointmentID int64, actorID *int64) (*rescheduleAppointment.RescheduleRequest, error) {
	date, err := handlers.ParseDate("date", r.Date)
	if err != nil {
		return nil, err
	}

	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, domain.NewValidationError("startTime", "expected HH:MM")
	}

	return &rescheduleAppointment.RescheduleRequest{
		AppointmentID: appointmentID,
		Date:          date,
		StartTime:     startTime,
		ActorID:       actorID,
	}, nil
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *AssignStaffRequest) ToUseCaseRequest(appointmentID int64, actorID *int64) *rescheduleAppointment.AssignStaffRequest {
	return &rescheduleAppointment.AssignStaffRequest{
		AppointmentID: appointmentID,
		StaffID:       r.StaffID,
		ActorID:       actorID,
	}
}
