package appointment_package

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

type AppointmentService interface {
	AttachPackage(ctx context.Context, appointmentID, packageID int64, actorID *int64) (*domain.Appointment, error)
	DetachPackage(ctx context.Context, appointmentID int64, actorID *int64) (*domain.Appointment, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
