package reschedule_appointment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/scheduling"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error)
	UpdateSchedule(ctx context.Context, id int64, date time.Time, start types.TimeString) error
	UpdateStaff(ctx context.Context, id int64, staffID *int64) error
}

// LogRepository интерфейс журнала действий по записи
type LogRepository interface {
	Append(ctx context.Context, entry *domain.AppointmentLog) (*domain.AppointmentLog, error)
}

// CatalogRepository интерфейс чтения каталога
type CatalogRepository interface {
	GetStaff(ctx context.Context, id int64) (*domain.Staff, error)
	IsStaffCapable(ctx context.Context, staffID, serviceID int64) (bool, error)
}

// CalendarLoader интерфейс загрузки календарей сотрудников
type CalendarLoader interface {
	Load(ctx context.Context, staff []domain.Staff, date time.Time) ([]scheduling.StaffCalendar, error)
}

// ConflictGuard проверка пересечений внутри транзакции
type ConflictGuard interface {
	AssertNoOverlap(ctx context.Context, q domain.OverlapQuery) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
