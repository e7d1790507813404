package update_appointment_notes

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

type AppointmentService interface {
	UpdateDetails(ctx context.Context, id int64, upd domain.AppointmentUpdate, actorID *int64) (*domain.Appointment, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
