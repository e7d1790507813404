package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/scheduling"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
)

// Loader собирает календари сотрудников на один день двумя запросами,
// независимо от количества сотрудников
type Loader struct {
	repo   ScheduleRepository
	logger Logger
}

// NewLoader создает загрузчик календарей
func NewLoader(repo ScheduleRepository, logger Logger) *Loader {
	return &Loader{
		repo:   repo,
		logger: logger,
	}
}

// Load возвращает календари в порядке staff. Рабочие окна и отгулы читаются параллельно;
// внутри транзакции запросы идут последовательно, так как соединение одно.
func (l *Loader) Load(ctx context.Context, staff []domain.Staff, date time.Time) ([]scheduling.StaffCalendar, error) {
	if len(staff) == 0 {
		return []scheduling.StaffCalendar{}, nil
	}

	ids := make([]int64, len(staff))
	for i, s := range staff {
		ids[i] = s.ID
	}

	var (
		windows  []domain.WorkingWindow
		timeOffs []domain.TimeOffException
	)

	g, gctx := errgroup.WithContext(ctx)
	if dbmetrics.IsInTransaction(ctx) {
		g.SetLimit(1)
	}
	g.Go(func() error {
		var err error
		windows, err = l.repo.ListWorkingWindows(gctx, ids, int(date.Weekday()))
		return err
	})
	g.Go(func() error {
		var err error
		timeOffs, err = l.repo.ListTimeOff(gctx, ids, date)
		return err
	})
	if err := g.Wait(); err != nil {
		l.logger.Error("LoadCalendars: failed to load schedules date=%s: %v", date.Format(domain.DateFormat), err)
		return nil, fmt.Errorf("%w: Load - fetch schedules: %w", ErrInternal, err)
	}

	byStaff := make(map[int64]*scheduling.StaffCalendar, len(staff))
	result := make([]scheduling.StaffCalendar, len(staff))
	for i, s := range staff {
		result[i] = scheduling.StaffCalendar{Staff: s}
		byStaff[s.ID] = &result[i]
	}
	for _, w := range windows {
		if cal, ok := byStaff[w.StaffID]; ok {
			cal.Windows = append(cal.Windows, w)
		}
	}
	for _, off := range timeOffs {
		if cal, ok := byStaff[off.StaffID]; ok {
			cal.TimeOffs = append(cal.TimeOffs, off)
		}
	}

	return result, nil
}
