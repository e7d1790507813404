package change_appointment_status

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	appointmentTransitions "github.com/m04kA/SMC-ClinicService/internal/usecase/appointment_transitions"
)

type TransitionsUseCase interface {
	Execute(ctx context.Context, req *appointmentTransitions.Request) (*domain.TransitionResult, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
