package revert_completion

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) error
}

// LogRepository интерфейс журнала действий по записи
type LogRepository interface {
	Append(ctx context.Context, entry *domain.AppointmentLog) (*domain.AppointmentLog, error)
}

// PackageLedger возврат списания по записи
type PackageLedger interface {
	RestoreDeduction(ctx context.Context, req *packages.RestoreRequest) (*packages.RestoreResult, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// MetricsRecorder бизнес-метрики переходов статусов
type MetricsRecorder interface {
	StatusChanged(from, to string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
