package scheduling

import (
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// Границы суток для частичных отгулов с одной открытой стороной
var (
	dayStartTime = types.MustTimeString("00:00:00")
	dayEndTime   = types.MustTimeString("23:59:59")
)

// StaffCalendar расписание сотрудника, предзагруженное один раз на запрос.
// TimeOffs может содержать записи на любые даты, фильтрация по дате делается здесь.
type StaffCalendar struct {
	Staff    domain.Staff
	Windows  []domain.WorkingWindow
	TimeOffs []domain.TimeOffException
}

// IsStaffAvailable проверяет, что интервал [startTime, endTime) целиком попадает
// в рабочее окно сотрудника на день недели date и не пересекается с отгулами.
// Принадлежность сотрудника к услуге проверяет вызывающий код.
func IsStaffAvailable(cal StaffCalendar, date time.Time, startTime, endTime types.TimeString) bool {
	if !cal.Staff.IsActive {
		return false
	}

	// 1. Рабочее окно на день недели (0 = воскресенье) должно полностью покрывать интервал
	if !coveredByWindow(cal.Windows, int(date.Weekday()), startTime, endTime) {
		return false
	}

	// 2. Отгулы на эту дату
	for i := range cal.TimeOffs {
		off := &cal.TimeOffs[i]
		if !isSameDay(off.Date, date) {
			continue
		}

		// Оба края пустые - выходной на весь день
		if off.IsFullDay() {
			return false
		}

		offStart, offEnd := dayStartTime, dayEndTime
		if off.StartTime != nil {
			offStart = *off.StartTime
		}
		if off.EndTime != nil {
			offEnd = *off.EndTime
		}

		// Полуоткрытые интервалы: стык не считается пересечением
		if startTime.IsBefore(offEnd) && offStart.IsBefore(endTime) {
			return false
		}
	}

	return true
}

// coveredByWindow ищет активное окно на weekday, которое содержит [start, end]
func coveredByWindow(windows []domain.WorkingWindow, weekday int, start, end types.TimeString) bool {
	for _, w := range windows {
		if w.Weekday != weekday || !w.IsActive {
			continue
		}
		if w.StartTime.IsAfter(start) || w.EndTime.IsBefore(end) {
			continue
		}
		return true
	}
	return false
}

// isSameDay проверяет, что две даты относятся к одному и тому же дню
func isSameDay(date1, date2 time.Time) bool {
	y1, m1, d1 := date1.Date()
	y2, m2, d2 := date2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// isDateInPast проверяет, что дата раньше сегодняшнего дня
func isDateInPast(date, now time.Time) bool {
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	nowOnly := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return dateOnly.Before(nowOnly)
}
