package reschedule_appointment

import (
	"context"

	rescheduleAppointment "github.com/m04kA/SMC-ClinicService/internal/usecase/reschedule_appointment"
)

type RescheduleUseCase interface {
	Reschedule(ctx context.Context, req *rescheduleAppointment.RescheduleRequest) (*rescheduleAppointment.Response, error)
	AssignStaff(ctx context.Context, req *rescheduleAppointment.AssignStaffRequest) (*rescheduleAppointment.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
