package revert_completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/txmanager"
)

// UseCase административный откат completed → cancelled с возвратом списания по пакету
type UseCase struct {
	appointments AppointmentRepository
	logs         LogRepository
	ledger       PackageLedger
	txManager    TransactionManager
	metrics      MetricsRecorder
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointments AppointmentRepository,
	logs LogRepository,
	ledger PackageLedger,
	txManager TransactionManager,
	metrics MetricsRecorder,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointments: appointments,
		logs:         logs,
		ledger:       ledger,
		txManager:    txManager,
		metrics:      metrics,
		logger:       logger,
	}
}

// Execute откатывает завершение. Повторный вызов для уже отменённой записи ничего не меняет.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RevertCompletion: appointment id=%d", req.AppointmentID)

	if req.AppointmentID <= 0 {
		return nil, domain.NewValidationError("appointment_id", "must be positive")
	}

	resp := &Response{}
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 1. Блокируем запись
		appt, err := uc.appointments.GetByIDForUpdate(txCtx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
				uc.logger.Warn("RevertCompletion: appointment id=%d not found", req.AppointmentID)
				return domain.NewNotFoundError("appointment", req.AppointmentID)
			}
			uc.logger.Error("RevertCompletion: failed to get appointment id=%d: %v", req.AppointmentID, err)
			return fmt.Errorf("%w: Execute - get appointment: %w", ErrInternal, err)
		}
		resp.Appointment = appt

		// 2. Уже отменена - ничего не делаем, откатывать можно только завершённую
		switch appt.Status {
		case domain.StatusCancelled:
			return nil
		case domain.StatusCompleted:
		default:
			uc.logger.Warn("RevertCompletion: appointment id=%d is %s", appt.ID, appt.Status)
			return &domain.InvalidTransitionError{From: appt.Status, To: domain.StatusCancelled}
		}

		// 3. Меняем статус
		if err := uc.appointments.UpdateStatus(txCtx, appt.ID, domain.StatusCancelled); err != nil {
			uc.logger.Error("RevertCompletion: failed to update appointment id=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: Execute - update status: %w", ErrInternal, err)
		}
		appt.Status = domain.StatusCancelled
		resp.Reverted = true
		resp.Events = append(resp.Events, domain.Event{
			Type:          domain.EventStatusChanged,
			AppointmentID: appt.ID,
			Payload: map[string]interface{}{
				"from":       string(domain.StatusCompleted),
				"to":         string(domain.StatusCancelled),
				"correction": true,
			},
		})

		// 4. Возвращаем списание по пакету, если оно было
		meta := map[string]interface{}{
			"from":       string(domain.StatusCompleted),
			"to":         string(domain.StatusCancelled),
			"correction": true,
		}
		if appt.ServicePackageID != nil {
			restored, err := uc.ledger.RestoreDeduction(txCtx, &packages.RestoreRequest{
				PackageID:      *appt.ServicePackageID,
				AppointmentID:  ptr.Ptr(appt.ID),
				AppointmentRef: ptr.Ptr(appt.ReferenceCode),
				StaffID:        appt.StaffID,
				Note:           req.Note,
			})
			if err != nil {
				return err
			}
			if restored.Restored {
				resp.RestoredAmount = restored.Amount
				meta["package_id"] = *appt.ServicePackageID
				meta["restored"] = restored.Amount
				resp.Events = append(resp.Events, domain.Event{
					Type:          domain.EventPackageRestored,
					AppointmentID: appt.ID,
					PackageID:     appt.ServicePackageID,
					Payload: map[string]interface{}{
						"amount":    restored.Amount,
						"remaining": restored.Package.Balance.Remaining(),
					},
				})
			}
		}

		// 5. Журнал
		_, err = uc.logs.Append(txCtx, &domain.AppointmentLog{
			AppointmentID: appt.ID,
			Action:        domain.ActionStatusChanged,
			Meta:          meta,
			UserID:        req.ActorID,
		})
		if err != nil {
			uc.logger.Error("RevertCompletion: failed to append log for appointment id=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: Execute - append log: %w", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, uc.txError(err)
	}

	if !resp.Reverted {
		uc.logger.Info("RevertCompletion: appointment id=%d already cancelled", req.AppointmentID)
		return resp, nil
	}

	uc.metrics.StatusChanged(string(domain.StatusCompleted), string(domain.StatusCancelled))
	uc.logger.Info("RevertCompletion: appointment id=%d reverted, restored=%d", req.AppointmentID, resp.RestoredAmount)
	return resp, nil
}

func (uc *UseCase) txError(err error) error {
	if errors.Is(err, txmanager.ErrConcurrentUpdate) {
		uc.logger.Warn("RevertCompletion: concurrent update: %v", err)
		return domain.NewConcurrencyConflict()
	}
	if errors.Is(err, domain.ErrInvariantViolation) {
		uc.logger.Error("RevertCompletion: INVARIANT VIOLATION: %v", err)
		return err
	}
	if domain.IsDomainError(err) || errors.Is(err, ErrInternal) {
		return err
	}
	uc.logger.Error("RevertCompletion: transaction error: %v", err)
	return fmt.Errorf("%w: Execute - transaction: %w", ErrInternal, err)
}
