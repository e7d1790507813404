package list_appointments

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/appointments"
)

type AppointmentService interface {
	List(ctx context.Context, req *appointments.ListRequest) ([]*domain.Appointment, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
