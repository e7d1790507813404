package create_appointment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/scheduling"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)
	ReferenceExists(ctx context.Context, code string) (bool, error)
	UpdatePackage(ctx context.Context, id int64, packageID *int64) error
	ListBlockingForDay(ctx context.Context, filter domain.DayAppointmentsFilter) ([]*domain.Appointment, error)
}

// LogRepository интерфейс журнала действий по записи
type LogRepository interface {
	Append(ctx context.Context, entry *domain.AppointmentLog) (*domain.AppointmentLog, error)
}

// CatalogRepository интерфейс чтения каталога
type CatalogRepository interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	GetStaff(ctx context.Context, id int64) (*domain.Staff, error)
	ListCapableStaff(ctx context.Context, serviceID int64) ([]domain.Staff, error)
	IsStaffCapable(ctx context.Context, staffID, serviceID int64) (bool, error)
}

// CalendarLoader интерфейс загрузки календарей сотрудников
type CalendarLoader interface {
	Load(ctx context.Context, staff []domain.Staff, date time.Time) ([]scheduling.StaffCalendar, error)
}

// ConflictGuard окончательная проверка пересечений внутри транзакции
type ConflictGuard interface {
	LockDay(ctx context.Context, date time.Time, staffIDs []int64, serviceID int64) error
	AssertNoOverlap(ctx context.Context, q domain.OverlapQuery) error
}

// PackageLedger выбор или создание пакета для записи
type PackageLedger interface {
	AcquireForBooking(ctx context.Context, userID int64, service *domain.Service, day time.Time) (*domain.ServicePackage, bool, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// MetricsRecorder бизнес-метрики записи
type MetricsRecorder interface {
	AppointmentCreated()
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
