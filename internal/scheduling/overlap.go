package scheduling

import (
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// DayBookings занятые интервалы одного дня: по услуге (общий ресурс) и по каждому сотруднику
type DayBookings struct {
	Service types.IntervalSet
	Staff   map[int64]types.IntervalSet
}

// BuildDayBookings раскладывает предзагруженные записи дня по двум осям.
// Отменённые, неявки и удалённые записи в расчёт не попадают.
func BuildDayBookings(appointments []*domain.Appointment, serviceID int64, loc *time.Location) DayBookings {
	busy := DayBookings{
		Service: types.IntervalSet{},
		Staff:   make(map[int64]types.IntervalSet),
	}

	for _, a := range appointments {
		if !blocks(a) {
			continue
		}

		iv := a.Interval(loc)
		if a.ServiceID == serviceID {
			busy.Service = append(busy.Service, iv)
		}
		if a.StaffID != nil {
			busy.Staff[*a.StaffID] = append(busy.Staff[*a.StaffID], iv)
		}
	}

	return busy
}

// FindConflict проверяет кандидата против записей дня по обеим осям.
// Возвращает nil, если пересечений нет.
//
// Примеры (полуоткрытые интервалы):
// - кандидат 10:30-11:30, запись 10:00-11:00 → конфликт
// - кандидат 11:00-12:00, запись 10:00-11:00 → нет конфликта (стык)
func FindConflict(appointments []*domain.Appointment, q domain.OverlapQuery, loc *time.Location) *domain.ConflictError {
	date := time.Date(q.Date.Year(), q.Date.Month(), q.Date.Day(), 0, 0, 0, 0, loc)
	candidate := types.NewInterval(q.StartTime.On(date), q.DurationMinutes)

	for _, a := range appointments {
		if q.IgnoreAppointmentID != nil && a.ID == *q.IgnoreAppointmentID {
			continue
		}
		if !blocks(a) {
			continue
		}
		if !a.Interval(loc).Overlaps(candidate) {
			continue
		}

		if q.StaffID != nil && a.StaffID != nil && *a.StaffID == *q.StaffID {
			return &domain.ConflictError{
				Axis:                     domain.AxisStaff,
				ConflictingAppointmentID: a.ID,
				StaffID:                  q.StaffID,
				ServiceID:                q.ServiceID,
			}
		}
		if a.ServiceID == q.ServiceID {
			return &domain.ConflictError{
				Axis:                     domain.AxisService,
				ConflictingAppointmentID: a.ID,
				StaffID:                  q.StaffID,
				ServiceID:                q.ServiceID,
			}
		}
	}

	return nil
}

func blocks(a *domain.Appointment) bool {
	return !a.IsDeleted() && a.Status.IsBlocking()
}
