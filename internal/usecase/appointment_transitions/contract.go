package appointment_transitions

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) error
}

// LogRepository интерфейс журнала действий по записи
type LogRepository interface {
	Append(ctx context.Context, entry *domain.AppointmentLog) (*domain.AppointmentLog, error)
	// HasAction ключ идемпотентности списания при завершении
	HasAction(ctx context.Context, appointmentID int64, action domain.LogAction) (bool, error)
}

// ConflictGuard проверка пересечений перед подтверждением
type ConflictGuard interface {
	AssertNoOverlap(ctx context.Context, q domain.OverlapQuery) error
}

// PackageLedger списание с пакета при завершении
type PackageLedger interface {
	DeductForAppointment(ctx context.Context, appt *domain.Appointment, staffID *int64) (*domain.ServicePackage, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider текущее время клиники
type TimeProvider interface {
	Now() time.Time
}

// MetricsRecorder счётчик переходов статусов
type MetricsRecorder interface {
	StatusChanged(from, to string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
