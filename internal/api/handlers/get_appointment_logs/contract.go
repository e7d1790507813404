package get_appointment_logs

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

type AppointmentService interface {
	ListLogs(ctx context.Context, filter domain.AppointmentLogFilter) ([]*domain.AppointmentLog, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
