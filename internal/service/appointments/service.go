package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/appointment"
	packageRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/servicepackage"
	"github.com/m04kA/SMC-ClinicService/pkg/clock"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/txmanager"
)

// Service операции с записью на приём, не меняющие её статус и расписание
type Service struct {
	appointments    AppointmentRepository
	logs            LogRepository
	packages        PackageRepository
	txManager       TransactionManager
	clock           TimeProvider
	metrics         MetricsRecorder
	logger          Logger
	defaultCurrency string
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	appointments AppointmentRepository,
	logs LogRepository,
	packages PackageRepository,
	txManager TransactionManager,
	clock TimeProvider,
	metrics MetricsRecorder,
	logger Logger,
	defaultCurrency string,
) *Service {
	return &Service{
		appointments:    appointments,
		logs:            logs,
		packages:        packages,
		txManager:       txManager,
		clock:           clock,
		metrics:         metrics,
		logger:          logger,
		defaultCurrency: defaultCurrency,
	}
}

// GetByID получает запись по ID
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, s.appointmentError("GetByID", id, err)
	}
	return appt, nil
}

// GetByReference получает запись по коду бронирования
func (s *Service) GetByReference(ctx context.Context, code string) (*domain.Appointment, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.NewValidationError("reference", "must not be empty")
	}

	appt, err := s.appointments.GetByReference(ctx, code)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			return nil, &domain.NotFoundError{Entity: "appointment", Key: code}
		}
		s.logger.Error("GetByReference: repository error for reference=%s: %v", code, err)
		return nil, fmt.Errorf("%w: GetByReference - repository error: %w", ErrInternal, err)
	}
	return appt, nil
}

// List возвращает записи клиента, сотрудника или дня. Upcoming=true оставляет записи
// начиная с сегодняшнего дня клиники, Upcoming=false только прошедшие дни, новые первыми.
func (s *Service) List(ctx context.Context, req *ListRequest) ([]*domain.Appointment, error) {
	if req.UserID == nil && req.StaffID == nil && req.Date == nil {
		return nil, domain.NewValidationError("filter", "one of userId, staffId or date is required")
	}
	if req.Limit < 0 || req.Limit > domain.MaxAppointmentsPerPage {
		return nil, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", domain.MaxAppointmentsPerPage))
	}
	if req.Offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative")
	}

	filter := domain.AppointmentListFilter{
		UserID:  req.UserID,
		StaffID: req.StaffID,
		Date:    req.Date,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	if req.Status != nil {
		status, err := domain.ParseAppointmentStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}
	if req.Upcoming != nil {
		now := s.clock.Now()
		today := clock.DateOnly(now, now.Location())
		if *req.Upcoming {
			filter.From = &today
		} else {
			filter.Before = &today
			filter.Descending = true
		}
	}

	result, err := s.appointments.List(ctx, filter)
	if err != nil {
		s.logger.Error("List: failed to list appointments: %v", err)
		return nil, fmt.Errorf("%w: List - list appointments: %w", ErrInternal, err)
	}
	return result, nil
}

// ListLogs возвращает журнал записи с фильтрами по действию и периоду
func (s *Service) ListLogs(ctx context.Context, filter domain.AppointmentLogFilter) ([]*domain.AppointmentLog, error) {
	if filter.Since != nil && filter.Until != nil && filter.Until.Before(*filter.Since) {
		return nil, domain.NewValidationError("until", "must not be before since")
	}
	if _, err := s.appointments.GetByID(ctx, filter.AppointmentID); err != nil {
		return nil, s.appointmentError("ListLogs", filter.AppointmentID, err)
	}

	logs, err := s.logs.List(ctx, filter)
	if err != nil {
		s.logger.Error("ListLogs: failed to list logs for appointment id=%d: %v", filter.AppointmentID, err)
		return nil, fmt.Errorf("%w: ListLogs - list logs: %w", ErrInternal, err)
	}
	return logs, nil
}

// UpdateDetails частично обновляет заметки и контактные данные.
// Поле без флага Set не меняется, Set с пустым значением очищает его.
func (s *Service) UpdateDetails(ctx context.Context, id int64, upd domain.AppointmentUpdate, actorID *int64) (*domain.Appointment, error) {
	s.logger.Info("UpdateDetails: appointment id=%d", id)

	if upd.IsEmpty() {
		return nil, domain.NewValidationError("body", "no fields to update")
	}
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}

	var result *domain.Appointment
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		if _, err := s.appointments.GetByIDForUpdate(ctx, id); err != nil {
			return s.appointmentError("UpdateDetails", id, err)
		}

		if err := s.appointments.UpdateDetails(ctx, id, upd); err != nil {
			return s.appointmentError("UpdateDetails", id, err)
		}

		if err := s.appendLog(ctx, "UpdateDetails", id, domain.ActionNotesUpdated, map[string]interface{}{
			"fields": updatedFields(upd),
		}, actorID); err != nil {
			return err
		}

		appt, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return s.appointmentError("UpdateDetails", id, err)
		}
		result = appt
		return nil
	})
	if err != nil {
		return nil, s.txError("UpdateDetails", err)
	}

	s.logger.Info("UpdateDetails: appointment id=%d updated", id)
	return result, nil
}

// AttachPackage привязывает пакет к записи. Пакет должен принадлежать тому же клиенту,
// относиться к той же услуге, быть активным на дату записи и покрывать визит.
func (s *Service) AttachPackage(ctx context.Context, appointmentID, packageID int64, actorID *int64) (*domain.Appointment, error) {
	s.logger.Info("AttachPackage: appointment id=%d package id=%d", appointmentID, packageID)

	var result *domain.Appointment
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		// 1. Блокируем запись и пакет
		appt, err := s.appointments.GetByIDForUpdate(ctx, appointmentID)
		if err != nil {
			return s.appointmentError("AttachPackage", appointmentID, err)
		}
		if appt.Status == domain.StatusCompleted {
			return domain.NewValidationError("status", "appointment is already completed")
		}
		if appt.ServicePackageID != nil && *appt.ServicePackageID == packageID {
			result = appt
			return nil
		}

		pkg, err := s.packages.GetByIDForUpdate(ctx, packageID)
		if err != nil {
			if errors.Is(err, packageRepo.ErrPackageNotFound) {
				return domain.NewNotFoundError("service_package", packageID)
			}
			if errors.Is(err, domain.ErrInvariantViolation) {
				s.logger.Error("AttachPackage: INVARIANT VIOLATION: %v", err)
				return err
			}
			s.logger.Error("AttachPackage: failed to get package id=%d: %v", packageID, err)
			return fmt.Errorf("%w: AttachPackage - get package: %w", ErrInternal, err)
		}

		// 2. Проверки совместимости
		if err := checkAttachable(appt, pkg); err != nil {
			s.logger.Warn("AttachPackage: package id=%d rejected for appointment id=%d: %v", packageID, appointmentID, err)
			return err
		}

		// 3. Сохраняем и пишем журнал
		if err := s.appointments.UpdatePackage(ctx, appt.ID, ptr.Ptr(pkg.ID)); err != nil {
			return s.appointmentError("AttachPackage", appt.ID, err)
		}
		meta := map[string]interface{}{"package_id": pkg.ID}
		if appt.ServicePackageID != nil {
			meta["previous_package_id"] = *appt.ServicePackageID
		}
		if err := s.appendLog(ctx, "AttachPackage", appt.ID, domain.ActionPackageAttached, meta, actorID); err != nil {
			return err
		}

		appt.ServicePackageID = ptr.Ptr(pkg.ID)
		result = appt
		return nil
	})
	if err != nil {
		return nil, s.txError("AttachPackage", err)
	}

	return result, nil
}

func checkAttachable(appt *domain.Appointment, pkg *domain.ServicePackage) error {
	switch {
	case appt.UserID == nil || *appt.UserID != pkg.UserID:
		return domain.NewValidationError("package_id", "package belongs to another customer")
	case appt.ServiceID != pkg.ServiceID:
		return domain.NewValidationError("package_id", "package is for another service")
	case !pkg.IsActive():
		return domain.NewValidationError("package_id", "package is not active")
	case !pkg.IsValidOn(appt.Date):
		return domain.NewValidationError("package_id", "package is not valid on the appointment date")
	case !pkg.CoversAppointment(appt.DurationMinutes):
		return domain.NewValidationError("package_id", "package balance does not cover the appointment")
	}
	return nil
}

// DetachPackage отвязывает пакет от записи. Для завершённой записи запрещено:
// списание уже произошло.
func (s *Service) DetachPackage(ctx context.Context, appointmentID int64, actorID *int64) (*domain.Appointment, error) {
	s.logger.Info("DetachPackage: appointment id=%d", appointmentID)

	var result *domain.Appointment
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.GetByIDForUpdate(ctx, appointmentID)
		if err != nil {
			return s.appointmentError("DetachPackage", appointmentID, err)
		}
		if appt.Status == domain.StatusCompleted {
			return domain.NewValidationError("status", "cannot detach package from a completed appointment")
		}
		result = appt
		if appt.ServicePackageID == nil {
			return nil
		}

		if err := s.appointments.UpdatePackage(ctx, appt.ID, nil); err != nil {
			return s.appointmentError("DetachPackage", appt.ID, err)
		}
		if err := s.appendLog(ctx, "DetachPackage", appt.ID, domain.ActionPackageDetached, map[string]interface{}{
			"package_id": *appt.ServicePackageID,
		}, actorID); err != nil {
			return err
		}

		appt.ServicePackageID = nil
		return nil
	})
	if err != nil {
		return nil, s.txError("DetachPackage", err)
	}

	return result, nil
}

// Delete мягко удаляет запись: она исчезает из выборок и перестаёт блокировать время
func (s *Service) Delete(ctx context.Context, appointmentID int64, actorID *int64) error {
	s.logger.Info("Delete: appointment id=%d", appointmentID)

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.GetByIDForUpdate(ctx, appointmentID)
		if err != nil {
			return s.appointmentError("Delete", appointmentID, err)
		}

		if err := s.appendLog(ctx, "Delete", appt.ID, domain.ActionDeleted, map[string]interface{}{
			"status": string(appt.Status),
		}, actorID); err != nil {
			return err
		}

		if err := s.appointments.SoftDelete(ctx, appt.ID); err != nil {
			return s.appointmentError("Delete", appt.ID, err)
		}
		return nil
	})
	if err != nil {
		return s.txError("Delete", err)
	}

	s.logger.Info("Delete: appointment id=%d deleted", appointmentID)
	return nil
}

// RecordPayment принимает оплату разовой записи. Запись с пакетом оплачивается через пакет.
// Вместе с платежом возвращается сумма оплаченного и остаток к оплате по цене записи.
func (s *Service) RecordPayment(ctx context.Context, req *PaymentRequest) (*PaymentResult, error) {
	s.logger.Info("RecordPayment: appointment id=%d amount=%s", req.AppointmentID, req.Amount)

	if !req.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if _, err := domain.ParsePaymentMethod(string(req.Method)); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if len(currency) != domain.CurrencyCodeLength {
		return nil, domain.NewValidationError("currency", "must be a 3-letter code")
	}

	var result *PaymentResult
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		appt, err := s.appointments.GetByIDForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return s.appointmentError("RecordPayment", req.AppointmentID, err)
		}
		if appt.ServicePackageID != nil {
			return domain.NewValidationError("appointment_id", "appointment is paid through its package")
		}

		payment, err := s.packages.CreatePayment(ctx, &domain.PackagePayment{
			AppointmentID: ptr.Ptr(appt.ID),
			UserID:        firstSet(req.UserID, appt.UserID),
			StaffID:       req.StaffID,
			Method:        req.Method,
			Amount:        req.Amount,
			Currency:      currency,
			Notes:         req.Notes,
		})
		if err != nil {
			s.logger.Error("RecordPayment: failed to create payment for appointment id=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: RecordPayment - create payment: %w", ErrInternal, err)
		}

		paid, err := s.packages.SumActivePaymentsForAppointment(ctx, appt.ID)
		if err != nil {
			s.logger.Error("RecordPayment: failed to sum payments for appointment id=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: RecordPayment - sum payments: %w", ErrInternal, err)
		}

		result = &PaymentResult{
			Payment:        payment,
			AmountPaid:     paid,
			RemainingToPay: appt.Price.Sub(paid),
		}
		return nil
	})
	if err != nil {
		return nil, s.txError("RecordPayment", err)
	}

	s.metrics.PaymentRecorded()
	return result, nil
}

func (s *Service) appendLog(ctx context.Context, op string, appointmentID int64, action domain.LogAction, meta map[string]interface{}, actorID *int64) error {
	_, err := s.logs.Append(ctx, &domain.AppointmentLog{
		AppointmentID: appointmentID,
		Action:        action,
		Meta:          meta,
		UserID:        actorID,
	})
	if err != nil {
		s.logger.Error("%s: failed to append %s log for appointment id=%d: %v", op, action, appointmentID, err)
		return fmt.Errorf("%w: %s - append log: %w", ErrInternal, op, err)
	}
	return nil
}

func (s *Service) appointmentError(op string, id int64, err error) error {
	if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
		s.logger.Warn("%s: appointment id=%d not found", op, id)
		return domain.NewNotFoundError("appointment", id)
	}
	if domain.IsDomainError(err) || errors.Is(err, ErrInternal) {
		return err
	}
	s.logger.Error("%s: repository error for appointment id=%d: %v", op, id, err)
	return fmt.Errorf("%w: %s - repository error: %w", ErrInternal, op, err)
}

func (s *Service) txError(op string, err error) error {
	if errors.Is(err, txmanager.ErrConcurrentUpdate) {
		s.logger.Warn("%s: concurrent update: %v", op, err)
		return domain.NewConcurrencyConflict()
	}
	if domain.IsDomainError(err) || errors.Is(err, ErrInternal) {
		return err
	}
	s.logger.Error("%s: transaction error: %v", op, err)
	return fmt.Errorf("%w: %s - transaction: %w", ErrInternal, op, err)
}

func validateUpdate(upd domain.AppointmentUpdate) error {
	limits := []struct {
		field string
		value domain.Optional[string]
		max   int
	}{
		{"notes", upd.Notes, domain.MaxNotesLength},
		{"admin_notes", upd.AdminNotes, domain.MaxNotesLength},
		{"customer_name", upd.CustomerName, domain.MaxNoteLength},
		{"customer_phone", upd.CustomerPhone, domain.MaxNoteLength},
		{"customer_email", upd.CustomerEmail, domain.MaxNoteLength},
	}
	for _, l := range limits {
		if l.value.Value != nil && utf8.RuneCountInString(*l.value.Value) > l.max {
			return domain.NewValidationError(l.field, fmt.Sprintf("must be at most %d characters", l.max))
		}
	}
	return nil
}

func updatedFields(upd domain.AppointmentUpdate) []string {
	fields := make([]string, 0, 5)
	if upd.Notes.Set {
		fields = append(fields, "notes")
	}
	if upd.AdminNotes.Set {
		fields = append(fields, "admin_notes")
	}
	if upd.CustomerName.Set {
		fields = append(fields, "customer_name")
	}
	if upd.CustomerPhone.Set {
		fields = append(fields, "customer_phone")
	}
	if upd.CustomerEmail.Set {
		fields = append(fields, "customer_email")
	}
	return fields
}

func firstSet[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
