package calendar

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// ScheduleRepository интерфейс чтения рабочих окон и отгулов сотрудников
type ScheduleRepository interface {
	ListWorkingWindows(ctx context.Context, staffIDs []int64, weekday int) ([]domain.WorkingWindow, error)
	ListTimeOff(ctx context.Context, staffIDs []int64, date time.Time) ([]domain.TimeOffException, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
