package packages

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// PackageRepository интерфейс для работы с пакетами, журналом и платежами
type PackageRepository interface {
	Create(ctx context.Context, p *domain.ServicePackage) (*domain.ServicePackage, error)
	GetByID(ctx context.Context, id int64) (*domain.ServicePackage, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServicePackage, error)
	ListByUser(ctx context.Context, userID int64, status *domain.PackageStatus) ([]*domain.ServicePackage, error)
	FindOldestActiveWithSessions(ctx context.Context, userID, serviceID int64, day time.Time) (*domain.ServicePackage, error)
	UpdateBalance(ctx context.Context, p *domain.ServicePackage) error
	UpdateStatus(ctx context.Context, id int64, status domain.PackageStatus) error
	CreateLog(ctx context.Context, l *domain.PackageLog) (*domain.PackageLog, error)
	LatestAppointmentLog(ctx context.Context, packageID int64, appointmentID *int64, appointmentRef *string) (*domain.PackageLog, error)
	ListLogs(ctx context.Context, packageID int64) ([]*domain.PackageLog, error)
	CreatePayment(ctx context.Context, p *domain.PackagePayment) (*domain.PackagePayment, error)
	SumActivePayments(ctx context.Context, packageID int64) (decimal.Decimal, error)
	ListPayments(ctx context.Context, packageID int64) ([]*domain.PackagePayment, error)
	GetPayment(ctx context.Context, id int64) (*domain.PackagePayment, error)
	VoidPayment(ctx context.Context, id int64) error
}

// ServiceRepository интерфейс чтения услуг каталога
type ServiceRepository interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс текущего времени клиники
type TimeProvider interface {
	Now() time.Time
}

// MetricsRecorder бизнес-метрики пакетов
type MetricsRecorder interface {
	PackageDeducted(kind string)
	PaymentRecorded()
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
