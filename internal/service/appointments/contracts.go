package appointments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// AppointmentRepository интерфейс для работы с записями на приём
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByReference(ctx context.Context, code string) (*domain.Appointment, error)
	List(ctx context.Context, filter domain.AppointmentListFilter) ([]*domain.Appointment, error)
	UpdateDetails(ctx context.Context, id int64, upd domain.AppointmentUpdate) error
	UpdatePackage(ctx context.Context, id int64, packageID *int64) error
	SoftDelete(ctx context.Context, id int64) error
}

// LogRepository интерфейс журнала действий с записями
type LogRepository interface {
	Append(ctx context.Context, entry *domain.AppointmentLog) (*domain.AppointmentLog, error)
	List(ctx context.Context, filter domain.AppointmentLogFilter) ([]*domain.AppointmentLog, error)
}

// PackageRepository интерфейс пакетов и платежей
type PackageRepository interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServicePackage, error)
	CreatePayment(ctx context.Context, p *domain.PackagePayment) (*domain.PackagePayment, error)
	SumActivePaymentsForAppointment(ctx context.Context, appointmentID int64) (decimal.Decimal, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider текущее время в часовом поясе клиники
type TimeProvider interface {
	Now() time.Time
}

// MetricsRecorder бизнес-метрики платежей
type MetricsRecorder interface {
	PaymentRecorded()
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
