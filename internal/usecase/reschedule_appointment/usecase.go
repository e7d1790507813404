package reschedule_appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/appointment"
	catalogRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ClinicService/internal/scheduling"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/txmanager"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// UseCase перенос записи и назначение сотрудника
type UseCase struct {
	appointments AppointmentRepository
	logs         LogRepository
	catalog      CatalogRepository
	calendars    CalendarLoader
	guard        ConflictGuard
	txManager    TransactionManager
	timeProvider TimeProvider
	config       domain.SchedulingConfig
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointments AppointmentRepository,
	logs LogRepository,
	catalog CatalogRepository,
	calendars CalendarLoader,
	guard ConflictGuard,
	txManager TransactionManager,
	timeProvider TimeProvider,
	config domain.SchedulingConfig,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointments: appointments,
		logs:         logs,
		catalog:      catalog,
		calendars:    calendars,
		guard:        guard,
		txManager:    txManager,
		timeProvider: timeProvider,
		config:       config,
		logger:       logger,
	}
}

// Reschedule переносит незавершённую запись. Сотрудник и длительность сохраняются.
func (uc *UseCase) Reschedule(ctx context.Context, req *RescheduleRequest) (*Response, error) {
	const op = "RescheduleAppointment"
	uc.logger.Info("%s: appointment id=%d, date=%s, time=%s",
		op, req.AppointmentID, req.Date.Format(domain.DateFormat), req.StartTime)

	// 1. Валидация входных данных
	if req.AppointmentID <= 0 {
		return nil, domain.NewValidationError("appointment_id", "must be positive")
	}
	if req.Date.IsZero() {
		return nil, domain.NewValidationError("date", "is required")
	}
	start, err := types.NewTimeStringFromString(string(req.StartTime))
	if err != nil {
		return nil, domain.NewValidationError("start_time", err.Error())
	}
	date := uc.config.DateIn(req.Date)

	resp := &Response{}
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 2. Блокируем запись
		appt, err := uc.lockAppointment(txCtx, op, req.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status.IsTerminal() {
			uc.logger.Warn("%s: appointment id=%d is %s", op, appt.ID, appt.Status)
			return domain.NewValidationError("status", fmt.Sprintf("%s appointment cannot be rescheduled", appt.Status))
		}

		// 3. Новое время должно попадать в рабочий день с учётом длительности записи
		err = scheduling.ValidateSlotStart(scheduling.SlotParams{
			Date:             date,
			Now:              uc.timeProvider.Now().In(uc.config.Location),
			DurationMinutes:  appt.DurationMinutes,
			StepMinutes:      uc.config.SlotStepMinutes,
			WorkdayStart:     uc.config.WorkdayStart,
			WorkdayEnd:       uc.config.WorkdayEnd,
			MinNoticeMinutes: uc.config.MinNoticeMinutes,
			AllowPastDates:   uc.config.AllowPastDates,
		}, start)
		if err != nil {
			uc.logger.Warn("%s: slot validation failed: %v", op, err)
			return err
		}
		end, err := start.AddMinutes(appt.DurationMinutes)
		if err != nil {
			return domain.NewValidationError("start_time", "appointment crosses midnight")
		}

		// 4. Назначенный сотрудник должен работать в новое время
		if appt.StaffID != nil {
			member, err := uc.getStaff(txCtx, op, *appt.StaffID)
			if err != nil {
				return err
			}
			if err := uc.checkAvailability(txCtx, op, member, date, start, end); err != nil {
				return err
			}
		}

		// 5. Проверка пересечений без учёта самой записи
		err = uc.guard.AssertNoOverlap(txCtx, domain.OverlapQuery{
			Date:                date,
			StartTime:           start,
			DurationMinutes:     appt.DurationMinutes,
			ServiceID:           appt.ServiceID,
			StaffID:             appt.StaffID,
			IgnoreAppointmentID: ptr.Ptr(appt.ID),
		})
		if err != nil {
			return err
		}

		// 6. Сохраняем и пишем журнал
		if err := uc.appointments.UpdateSchedule(txCtx, appt.ID, date, start); err != nil {
			uc.logger.Error("%s: failed to update appointment id=%d: %v", op, appt.ID, err)
			return fmt.Errorf("%w: %s - update schedule: %w", ErrInternal, op, err)
		}
		meta := map[string]interface{}{
			"from_date":       appt.Date.Format(domain.DateFormat),
			"from_start_time": appt.StartTime.String(),
			"to_date":         date.Format(domain.DateFormat),
			"to_start_time":   start.String(),
		}
		if err := uc.appendLog(txCtx, op, appt.ID, domain.ActionRescheduled, meta, req.ActorID); err != nil {
			return err
		}

		appt.Date = date
		appt.StartTime = start
		resp.Appointment = appt
		return nil
	})
	if err != nil {
		return nil, uc.txError(op, err)
	}

	uc.logger.Info("%s: appointment id=%d moved to %s %s", op, req.AppointmentID, date.Format(domain.DateFormat), start)
	return resp, nil
}

// AssignStaff назначает сотрудника на запись или меняет уже назначенного
func (uc *UseCase) AssignStaff(ctx context.Context, req *AssignStaffRequest) (*Response, error) {
	const op = "AssignStaff"
	uc.logger.Info("%s: appointment id=%d, staff id=%d", op, req.AppointmentID, req.StaffID)

	if req.AppointmentID <= 0 {
		return nil, domain.NewValidationError("appointment_id", "must be positive")
	}
	if req.StaffID <= 0 {
		return nil, domain.NewValidationError("staff_id", "must be positive")
	}

	resp := &Response{}
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 1. Блокируем запись
		appt, err := uc.lockAppointment(txCtx, op, req.AppointmentID)
		if err != nil {
			return err
		}
		if appt.Status.IsTerminal() {
			uc.logger.Warn("%s: appointment id=%d is %s", op, appt.ID, appt.Status)
			return domain.NewValidationError("status", fmt.Sprintf("cannot change staff of a %s appointment", appt.Status))
		}
		if appt.StaffID != nil && *appt.StaffID == req.StaffID {
			resp.Appointment = appt
			return nil
		}

		// 2. Сотрудник активен и оказывает услугу
		member, err := uc.getStaff(txCtx, op, req.StaffID)
		if err != nil {
			return err
		}
		if !member.IsActive {
			return domain.NewValidationError("staff_id", "staff member is not active")
		}
		capable, err := uc.catalog.IsStaffCapable(txCtx, member.ID, appt.ServiceID)
		if err != nil {
			uc.logger.Error("%s: failed to check staff id=%d: %v", op, member.ID, err)
			return fmt.Errorf("%w: %s - check capability: %w", ErrInternal, op, err)
		}
		if !capable {
			uc.logger.Warn("%s: staff id=%d does not provide service=%d", op, member.ID, appt.ServiceID)
			return domain.NewValidationError("staff_id", "staff member does not provide this service")
		}

		// 3. Сотрудник работает в это время и свободен
		end, err := appt.EndTime()
		if err != nil {
			return fmt.Errorf("%w: %s - end time: %w", ErrInternal, op, err)
		}
		if err := uc.checkAvailability(txCtx, op, member, appt.Date, appt.StartTime, end); err != nil {
			return err
		}
		err = uc.guard.AssertNoOverlap(txCtx, domain.OverlapQuery{
			Date:                appt.Date,
			StartTime:           appt.StartTime,
			DurationMinutes:     appt.DurationMinutes,
			ServiceID:           appt.ServiceID,
			StaffID:             ptr.Ptr(member.ID),
			IgnoreAppointmentID: ptr.Ptr(appt.ID),
		})
		if err != nil {
			return err
		}

		// 4. Сохраняем и пишем журнал
		if err := uc.appointments.UpdateStaff(txCtx, appt.ID, ptr.Ptr(member.ID)); err != nil {
			uc.logger.Error("%s: failed to update appointment id=%d: %v", op, appt.ID, err)
			return fmt.Errorf("%w: %s - update staff: %w", ErrInternal, op, err)
		}

		action := domain.ActionAssigned
		meta := map[string]interface{}{"staff_id": member.ID}
		if appt.StaffID != nil {
			action = domain.ActionReassigned
			meta["previous_staff_id"] = *appt.StaffID
		}
		if err := uc.appendLog(txCtx, op, appt.ID, action, meta, req.ActorID); err != nil {
			return err
		}

		appt.StaffID = ptr.Ptr(member.ID)
		resp.Appointment = appt
		return nil
	})
	if err != nil {
		return nil, uc.txError(op, err)
	}

	uc.logger.Info("%s: appointment id=%d assigned to staff id=%d", op, req.AppointmentID, req.StaffID)
	return resp, nil
}

func (uc *UseCase) lockAppointment(ctx context.Context, op string, id int64) (*domain.Appointment, error) {
	appt, err := uc.appointments.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			uc.logger.Warn("%s: appointment id=%d not found", op, id)
			return nil, domain.NewNotFoundError("appointment", id)
		}
		uc.logger.Error("%s: failed to get appointment id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - get appointment: %w", ErrInternal, op, err)
	}
	return appt, nil
}

func (uc *UseCase) getStaff(ctx context.Context, op string, id int64) (domain.Staff, error) {
	member, err := uc.catalog.GetStaff(ctx, id)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrStaffNotFound) {
			uc.logger.Warn("%s: staff id=%d not found", op, id)
			return domain.Staff{}, domain.NewNotFoundError("staff", id)
		}
		uc.logger.Error("%s: failed to get staff id=%d: %v", op, id, err)
		return domain.Staff{}, fmt.Errorf("%w: %s - get staff: %w", ErrInternal, op, err)
	}
	return *member, nil
}

// checkAvailability рабочее окно, отгулы и активность сотрудника на интервал [start, end)
func (uc *UseCase) checkAvailability(ctx context.Context, op string, member domain.Staff, date time.Time, start, end types.TimeString) error {
	calendars, err := uc.calendars.Load(ctx, []domain.Staff{member}, date)
	if err != nil {
		return fmt.Errorf("%w: %s - load calendar: %w", ErrInternal, op, err)
	}
	if len(calendars) == 0 || !scheduling.IsStaffAvailable(calendars[0], date, start, end) {
		uc.logger.Warn("%s: staff id=%d does not work on %s at %s", op, member.ID, date.Format(domain.DateFormat), start)
		return domain.NewValidationError("staff_id", "staff member does not work at that time")
	}
	return nil
}

func (uc *UseCase) appendLog(ctx context.Context, op string, appointmentID int64, action domain.LogAction, meta map[string]interface{}, actorID *int64) error {
	_, err := uc.logs.Append(ctx, &domain.AppointmentLog{
		AppointmentID: appointmentID,
		Action:        action,
		Meta:          meta,
		UserID:        actorID,
	})
	if err != nil {
		uc.logger.Error("%s: failed to append %s log for appointment id=%d: %v", op, action, appointmentID, err)
		return fmt.Errorf("%w: %s - append log: %w", ErrInternal, op, err)
	}
	return nil
}

func (uc *UseCase) txError(op string, err error) error {
	if errors.Is(err, txmanager.ErrConcurrentUpdate) {
		uc.logger.Warn("%s: concurrent update: %v", op, err)
		return domain.NewConcurrencyConflict()
	}
	if errors.Is(err, domain.ErrInvariantViolation) {
		uc.logger.Error("%s: INVARIANT VIOLATION: %v", op, err)
		return err
	}
	if domain.IsDomainError(err) || errors.Is(err, ErrInternal) {
		return err
	}
	uc.logger.Error("%s: transaction error: %v", op, err)
	return fmt.Errorf("%w: %s - transaction: %w", ErrInternal, op, err)
}
