package conflicts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/scheduling"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/txmanager"
)

// Guard окончательная проверка пересечений записей по сотруднику и по услуге.
// Внутри транзакции сначала берёт advisory-блокировки на (сотрудник, день) и (услуга, день),
// чтобы конкурентные бронирования того же ресурса выполнялись последовательно.
type Guard struct {
	repo     AppointmentRepository
	location *time.Location
	metrics  MetricsRecorder
	logger   Logger
}

// NewGuard создает проверку пересечений для часового пояса клиники
func NewGuard(repo AppointmentRepository, location *time.Location, metrics MetricsRecorder, logger Logger) *Guard {
	return &Guard{
		repo:     repo,
		location: location,
		metrics:  metrics,
		logger:   logger,
	}
}

// AssertNoOverlap возвращает *domain.ConflictError, если кандидат пересекается с блокирующей
// записью того же сотрудника или той же услуги. Запись q.IgnoreAppointmentID не учитывается.
func (g *Guard) AssertNoOverlap(ctx context.Context, q domain.OverlapQuery) error {
	if q.DurationMinutes <= 0 {
		return domain.NewValidationError("duration_minutes", "must be positive")
	}
	if err := q.StartTime.Validate(); err != nil {
		return domain.NewValidationError("start_time", err.Error())
	}

	// 1. В транзакции блокируем ресурсы в каноническом порядке: сотрудник, затем услуга
	if !q.SkipLock {
		var staffIDs []int64
		if q.StaffID != nil {
			staffIDs = []int64{*q.StaffID}
		}
		if err := g.LockDay(ctx, q.Date, staffIDs, q.ServiceID); err != nil {
			return err
		}
	}

	// 2. Одним запросом читаем все блокирующие записи дня по обеим осям
	filter := domain.DayAppointmentsFilter{
		Date:      q.Date,
		ServiceID: ptr.Ptr(q.ServiceID),
		ExcludeID: q.IgnoreAppointmentID,
	}
	if q.StaffID != nil {
		filter.StaffIDs = []int64{*q.StaffID}
	}

	appointments, err := g.repo.ListBlockingForDay(ctx, filter)
	if err != nil {
		if translated := TranslateTxError(err); errors.Is(translated, domain.ErrConflict) {
			return translated
		}
		g.logger.Error("AssertNoOverlap: failed to list appointments service=%d: %v", q.ServiceID, err)
		return fmt.Errorf("%w: list appointments: %w", ErrInternal, err)
	}

	// 3. Чистая проверка полуоткрытых интервалов
	if conflict := scheduling.FindConflict(appointments, q, g.location); conflict != nil {
		g.metrics.ConflictDetected(string(conflict.Axis))
		g.logger.Warn("AssertNoOverlap: %s conflict with appointment id=%d (service=%d, start=%s)",
			conflict.Axis, conflict.ConflictingAppointmentID, q.ServiceID, q.StartTime)
		return conflict
	}

	return nil
}

// LockDay блокирует на день всех сотрудников из staffIDs по возрастанию ID, затем услугу.
// Используется, когда в одной транзакции проверяется несколько кандидатов: все блокировки
// берутся заранее, и порядок сотрудник -> услуга не нарушается между кандидатами.
// Вне транзакции ничего не делает.
func (g *Guard) LockDay(ctx context.Context, date time.Time, staffIDs []int64, serviceID int64) error {
	if !dbmetrics.IsInTransaction(ctx) {
		return nil
	}

	ordered := uniqueSorted(staffIDs)
	if err := g.repo.LockResources(ctx, date, ordered, serviceID); err != nil {
		if translated := TranslateTxError(err); errors.Is(translated, domain.ErrConflict) {
			g.metrics.ConflictDetected(string(domain.AxisConcurrent))
			return translated
		}
		g.logger.Error("LockDay: failed to lock resources service=%d staff=%v: %v", serviceID, ordered, err)
		return fmt.Errorf("%w: lock resources: %w", ErrInternal, err)
	}
	return nil
}

func uniqueSorted(ids []int64) []int64 {
	result := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// TranslateTxError превращает ошибки конкурентного доступа PostgreSQL в ConflictError.
// Остальные ошибки возвращаются без изменений.
func TranslateTxError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(txmanager.Translate(err), txmanager.ErrConcurrentUpdate) {
		return domain.NewConcurrencyConflict()
	}
	return err
}
