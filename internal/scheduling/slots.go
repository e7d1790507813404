package scheduling

import (
	"math"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// SlotParams параметры генерации слотов на один день
type SlotParams struct {
	Date             time.Time // полночь в часовом поясе клиники
	Now              time.Time
	DurationMinutes  int
	StepMinutes      int
	WorkdayStart     types.TimeString
	WorkdayEnd       types.TimeString
	MinNoticeMinutes int
	AllowPastDates   bool
}

func (p SlotParams) validate() error {
	if p.DurationMinutes <= 0 || p.DurationMinutes > domain.MaxDurationMinutes {
		return domain.NewValidationError("duration_minutes", "out of range")
	}
	if p.StepMinutes <= 0 {
		return domain.NewValidationError("step", "must be positive")
	}
	if err := p.WorkdayStart.Validate(); err != nil {
		return domain.NewValidationError("workday_start", err.Error())
	}
	if err := p.WorkdayEnd.Validate(); err != nil {
		return domain.NewValidationError("workday_end", err.Error())
	}
	if !p.WorkdayStart.IsBefore(p.WorkdayEnd) {
		return domain.NewValidationError("workday", "start must be before end")
	}
	return nil
}

// GenerateSlots возвращает упорядоченный список стартов, которые может принять
// хотя бы один сотрудник из staff. Все занятые интервалы берутся из busy,
// запросов к БД внутри нет.
func GenerateSlots(p SlotParams, staff []StaffCalendar, busy DayBookings) ([]domain.Slot, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	// Шаг 1: прошедшие даты и дни без сотрудников дают пустой список
	if !p.AllowPastDates && isDateInPast(p.Date, p.Now) {
		return []domain.Slot{}, nil
	}
	if len(staff) == 0 {
		return []domain.Slot{}, nil
	}

	// Шаг 2: границы рабочего дня, для сегодняшней даты - сдвиг к ближайшему шагу сетки
	dayStart := p.WorkdayStart.On(p.Date)
	dayEnd := p.WorkdayEnd.On(p.Date)
	cursor := dayStart
	if isSameDay(p.Date, p.Now) {
		cursor = alignToGrid(dayStart, p.Now.Add(time.Duration(p.MinNoticeMinutes)*time.Minute), p.StepMinutes)
	}

	step := time.Duration(p.StepMinutes) * time.Minute
	duration := time.Duration(p.DurationMinutes) * time.Minute

	// Шаг 3: проходим день с шагом, проверяя услугу и сотрудников по предзагруженным интервалам
	slots := make([]domain.Slot, 0)
	for ; cursor.Before(dayEnd); cursor = cursor.Add(step) {
		slotEnd := cursor.Add(duration)
		if slotEnd.After(dayEnd) {
			break
		}

		candidate := types.Interval{Start: cursor, End: slotEnd}
		if busy.Service.Overlaps(candidate) {
			continue
		}

		startTime := types.NewTimeString(cursor)
		endTime := types.NewTimeString(slotEnd)

		free := 0
		for _, cal := range staff {
			if !IsStaffAvailable(cal, p.Date, startTime, endTime) {
				continue
			}
			if busy.Staff[cal.Staff.ID].Overlaps(candidate) {
				continue
			}
			free++
		}

		if free > 0 {
			slots = append(slots, domain.Slot{
				StartTime:       startTime,
				EndTime:         endTime,
				DurationMinutes: p.DurationMinutes,
				FreeStaff:       free,
			})
		}
	}

	return slots, nil
}

// ValidateSlotStart проверяет выбранное клиентом время: попадание в рабочий день,
// отсутствие прошедшего времени и минимальный запас до начала.
// Выравнивание по сетке шагов не требуется.
func ValidateSlotStart(p SlotParams, start types.TimeString) error {
	if err := p.validate(); err != nil {
		return err
	}
	if err := start.Validate(); err != nil {
		return domain.NewValidationError("start_time", err.Error())
	}

	end, err := start.AddMinutes(p.DurationMinutes)
	if err != nil {
		return domain.NewValidationError("start_time", "appointment crosses midnight")
	}
	if start.IsBefore(p.WorkdayStart) || end.IsAfter(p.WorkdayEnd) {
		return domain.NewValidationError("start_time", "outside of working hours")
	}

	if p.AllowPastDates {
		return nil
	}
	earliest := p.Now.Add(time.Duration(p.MinNoticeMinutes) * time.Minute)
	if start.On(p.Date).Before(earliest) {
		return domain.NewValidationError("start_time", "too late to book this slot")
	}
	return nil
}

// alignToGrid возвращает первую точку сетки anchor + k*step, не раньше earliest
func alignToGrid(anchor, earliest time.Time, stepMinutes int) time.Time {
	if !earliest.After(anchor) {
		return anchor
	}
	step := time.Duration(stepMinutes) * time.Minute
	k := int64(math.Ceil(float64(earliest.Sub(anchor)) / float64(step)))
	return anchor.Add(time.Duration(k) * step)
}
