package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/scheduling"
)

// CatalogRepository интерфейс чтения каталога услуг и сотрудников
type CatalogRepository interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	GetStaff(ctx context.Context, id int64) (*domain.Staff, error)
	ListCapableStaff(ctx context.Context, serviceID int64) ([]domain.Staff, error)
	IsStaffCapable(ctx context.Context, staffID, serviceID int64) (bool, error)
}

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	// ListBlockingForDay получает блокирующие записи дня по услуге или по сотрудникам
	ListBlockingForDay(ctx context.Context, filter domain.DayAppointmentsFilter) ([]*domain.Appointment, error)
}

// CalendarLoader интерфейс загрузки календарей сотрудников на день
type CalendarLoader interface {
	Load(ctx context.Context, staff []domain.Staff, date time.Time) ([]scheduling.StaffCalendar, error)
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
