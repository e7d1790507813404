package appointment_transitions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ClinicService/pkg/clock"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/txmanager"
)

// UseCase переходы записи по машине состояний: подтверждение, завершение, отмена, неявка
type UseCase struct {
	appointments AppointmentRepository
	logs         LogRepository
	guard        ConflictGuard
	ledger       PackageLedger
	txManager    TransactionManager
	timeProvider TimeProvider
	config       domain.SchedulingConfig
	metrics      MetricsRecorder
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointments AppointmentRepository,
	logs LogRepository,
	guard ConflictGuard,
	ledger PackageLedger,
	txManager TransactionManager,
	timeProvider TimeProvider,
	config domain.SchedulingConfig,
	metrics MetricsRecorder,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointments: appointments,
		logs:         logs,
		guard:        guard,
		ledger:       ledger,
		txManager:    txManager,
		timeProvider: timeProvider,
		config:       config,
		metrics:      metrics,
		logger:       logger,
	}
}

// effect действие внутри транзакции перехода. before выполняется до смены статуса, after - после.
type effect struct {
	before func(ctx context.Context, appt *domain.Appointment, result *domain.TransitionResult) error
	after  func(ctx context.Context, appt *domain.Appointment, req *Request, result *domain.TransitionResult) error
}

// Execute выбирает переход по req.Status
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*domain.TransitionResult, error) {
	switch req.Status {
	case domain.StatusConfirmed:
		return uc.Confirm(ctx, req)
	case domain.StatusCompleted:
		return uc.Complete(ctx, req)
	case domain.StatusCancelled:
		return uc.Cancel(ctx, req)
	case domain.StatusNoShow:
		return uc.NoShow(ctx, req)
	case "":
		return nil, domain.NewValidationError("status", "is required")
	default:
		return nil, domain.NewValidationError("status", fmt.Sprintf("cannot move an appointment to %s", req.Status))
	}
}

// Confirm pending → confirmed. Проверка пересечений повторяется, сама запись не учитывается.
func (uc *UseCase) Confirm(ctx context.Context, req *Request) (*domain.TransitionResult, error) {
	return uc.transition(ctx, "ConfirmAppointment", req, domain.StatusConfirmed, effect{
		before: func(ctx context.Context, appt *domain.Appointment, _ *domain.TransitionResult) error {
			return uc.guard.AssertNoOverlap(ctx, domain.OverlapQuery{
				Date:                appt.Date,
				StartTime:           appt.StartTime,
				DurationMinutes:     appt.DurationMinutes,
				ServiceID:           appt.ServiceID,
				StaffID:             appt.StaffID,
				IgnoreAppointmentID: ptr.Ptr(appt.ID),
			})
		},
	})
}

// Complete confirmed → completed. Если к записи привязан пакет, списывает с него ровно один раз.
func (uc *UseCase) Complete(ctx context.Context, req *Request) (*domain.TransitionResult, error) {
	return uc.transition(ctx, "CompleteAppointment", req, domain.StatusCompleted, effect{
		after: uc.deductPackage,
	})
}

// Cancel pending|confirmed → cancelled. Клиент не может сам отменить запись позже,
// чем за min_notice_minutes до начала; администратор может.
func (uc *UseCase) Cancel(ctx context.Context, req *Request) (*domain.TransitionResult, error) {
	return uc.transition(ctx, "CancelAppointment", req, domain.StatusCancelled, effect{
		before: func(_ context.Context, appt *domain.Appointment, _ *domain.TransitionResult) error {
			return uc.checkSelfCancelNotice(appt, req.ActorID)
		},
	})
}

func (uc *UseCase) checkSelfCancelNotice(appt *domain.Appointment, actorID *int64) error {
	if actorID == nil || appt.UserID == nil || *actorID != *appt.UserID {
		return nil
	}

	loc := uc.config.Location
	if loc == nil {
		loc = time.UTC
	}
	start := appt.StartTime.On(clock.DateOnly(appt.Date, loc))
	earliest := uc.timeProvider.Now().In(loc).Add(time.Duration(uc.config.MinNoticeMinutes) * time.Minute)
	if start.Before(earliest) {
		uc.logger.Warn("CancelAppointment: appointment id=%d starts at %s, inside the %d minute notice window",
			appt.ID, start.Format(time.RFC3339), uc.config.MinNoticeMinutes)
		return domain.NewValidationError("status", fmt.Sprintf("cannot cancel less than %d minutes before the start, contact the clinic", uc.config.MinNoticeMinutes))
	}
	return nil
}

// NoShow pending|confirmed → no_show
func (uc *UseCase) NoShow(ctx context.Context, req *Request) (*domain.TransitionResult, error) {
	return uc.transition(ctx, "NoShowAppointment", req, domain.StatusNoShow, effect{})
}

func (uc *UseCase) transition(
	ctx context.Context,
	op string,
	req *Request,
	to domain.AppointmentStatus,
	fx effect,
) (*domain.TransitionResult, error) {
	uc.logger.Info("%s: appointment id=%d", op, req.AppointmentID)

	if req.AppointmentID <= 0 {
		return nil, domain.NewValidationError("appointment_id", "must be positive")
	}

	result := &domain.TransitionResult{}
	var from domain.AppointmentStatus

	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 1. Блокируем запись
		appt, err := uc.appointments.GetByIDForUpdate(txCtx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
				uc.logger.Warn("%s: appointment id=%d not found", op, req.AppointmentID)
				return domain.NewNotFoundError("appointment", req.AppointmentID)
			}
			uc.logger.Error("%s: failed to get appointment id=%d: %v", op, req.AppointmentID, err)
			return fmt.Errorf("%w: %s - get appointment: %w", ErrInternal, op, err)
		}
		from = appt.Status

		// 2. Проверяем переход по таблице
		if err := domain.CheckTransition(appt.Status, to); err != nil {
			uc.logger.Warn("%s: appointment id=%d: %v", op, appt.ID, err)
			return err
		}

		// 3. Проверки до смены статуса
		if fx.before != nil {
			if err := fx.before(txCtx, appt, result); err != nil {
				return err
			}
		}

		// 4. Меняем статус и пишем журнал
		if err := uc.appointments.UpdateStatus(txCtx, appt.ID, to); err != nil {
			uc.logger.Error("%s: failed to update status of appointment id=%d: %v", op, appt.ID, err)
			return fmt.Errorf("%w: %s - update status: %w", ErrInternal, op, err)
		}
		appt.Status = to

		if err := uc.appendLog(txCtx, op, appt.ID, domain.ActionStatusChanged, map[string]interface{}{
			"from": string(from),
			"to":   string(to),
		}, req.ActorID); err != nil {
			return err
		}
		result.Appointment = appt
		result.Events = append(result.Events, domain.Event{
			Type:          domain.EventStatusChanged,
			AppointmentID: appt.ID,
			Payload:       map[string]interface{}{"from": string(from), "to": string(to)},
		})

		// 5. Побочные эффекты после смены статуса
		if fx.after != nil {
			return fx.after(txCtx, appt, req, result)
		}
		return nil
	})
	if err != nil {
		return nil, uc.txError(op, err)
	}

	uc.metrics.StatusChanged(string(from), string(to))
	uc.logger.Info("%s: appointment id=%d %s -> %s", op, req.AppointmentID, from, to)
	return result, nil
}

// deductPackage списывает сессию или минуты, если пакет привязан и списания по записи ещё не было
func (uc *UseCase) deductPackage(ctx context.Context, appt *domain.Appointment, req *Request, result *domain.TransitionResult) error {
	if appt.ServicePackageID == nil {
		return nil
	}

	done, err := uc.logs.HasAction(ctx, appt.ID, domain.ActionPackageDeducted)
	if err != nil {
		uc.logger.Error("CompleteAppointment: failed to read log of appointment id=%d: %v", appt.ID, err)
		return fmt.Errorf("%w: deductPackage - read log: %w", ErrInternal, err)
	}
	if done {
		uc.logger.Info("CompleteAppointment: package already charged for appointment id=%d", appt.ID)
		return nil
	}

	staffID := req.StaffID
	if staffID == nil {
		staffID = appt.StaffID
	}
	pkg, err := uc.ledger.DeductForAppointment(ctx, appt, staffID)
	if err != nil {
		return err
	}

	amount := domain.SessionsPerAppointment
	if pkg.Balance.IsMinutes() {
		amount = appt.DurationMinutes
	}
	if err := uc.appendLog(ctx, "CompleteAppointment", appt.ID, domain.ActionPackageDeducted, map[string]interface{}{
		"package_id": pkg.ID,
		"kind":       string(pkg.Balance.Kind()),
		"amount":     amount,
		"remaining":  pkg.Balance.Remaining(),
	}, req.ActorID); err != nil {
		return err
	}

	payload := map[string]interface{}{"kind": string(pkg.Balance.Kind()), "amount": amount, "remaining": pkg.Balance.Remaining()}
	result.Events = append(result.Events, domain.Event{
		Type:          domain.EventPackageDeducted,
		AppointmentID: appt.ID,
		PackageID:     ptr.Ptr(pkg.ID),
		Payload:       payload,
	})
	if pkg.Status == domain.PackageExhausted {
		result.Events = append(result.Events, domain.Event{
			Type:          domain.EventPackageExhausted,
			AppointmentID: appt.ID,
			PackageID:     ptr.Ptr(pkg.ID),
		})
	}
	if pkg.HasNegativeBalance() {
		result.Events = append(result.Events, domain.Event{
			Type:          domain.EventPackageBalanceNegative,
			AppointmentID: appt.ID,
			PackageID:     ptr.Ptr(pkg.ID),
			Payload:       payload,
		})
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
