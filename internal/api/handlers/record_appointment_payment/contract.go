package record_appointment_payment

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/service/appointments"
)

type AppointmentService interface {
	RecordPayment(ctx context.Context, req *appointments.PaymentRequest) (*appointments.PaymentResult, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
