package conflicts

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей, нужный проверке пересечений
type AppointmentRepository interface {
	LockResources(ctx context.Context, date time.Time, staffIDs []int64, serviceID int64) error
	ListBlockingForDay(ctx context.Context, filter domain.DayAppointmentsFilter) ([]*domain.Appointment, error)
}

// MetricsRecorder счётчик отклонённых бронирований
type MetricsRecorder interface {
	ConflictDetected(axis string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
