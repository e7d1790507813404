package packages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	catalogRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/catalog"
	packageRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/servicepackage"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/txmanager"
)

// Ledger учёт баланса пакетов: создание, списания, возвраты и платежи.
// Каждое изменение баланса выполняется в транзакции с блокировкой строки пакета (FOR UPDATE);
// если транзакция уже открыта вызывающим кодом, операция присоединяется к ней.
type Ledger struct {
	packages        PackageRepository
	services        ServiceRepository
	txManager       TransactionManager
	clock           TimeProvider
	metrics         MetricsRecorder
	logger          Logger
	defaultCurrency string
}

// NewLedger создает новый экземпляр сервиса пакетов
func NewLedger(
	packages PackageRepository,
	services ServiceRepository,
	txManager TransactionManager,
	clock TimeProvider,
	metrics MetricsRecorder,
	logger Logger,
	defaultCurrency string,
) *Ledger {
	return &Ledger{
		packages:        packages,
		services:        services,
		txManager:       txManager,
		clock:           clock,
		metrics:         metrics,
		logger:          logger,
		defaultCurrency: defaultCurrency,
	}
}

// CreatePackage создаёт пакет по шаблону услуги: остаток равен снимку total, статус active
func (l *Ledger) CreatePackage(ctx context.Context, req *CreatePackageRequest) (*domain.ServicePackage, error) {
	l.logger.Info("CreatePackage: user=%d service=%d price=%s", req.UserID, req.ServiceID, req.PriceTotal)

	// 1. Валидация входных данных
	if req.PriceTotal.IsNegative() {
		return nil, domain.NewValidationError("price_total", "must not be negative")
	}
	if req.StartsOn != nil && req.ExpiresOn != nil && req.ExpiresOn.Before(*req.StartsOn) {
		return nil, domain.NewValidationError("expires_on", "must not be before starts_on")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = l.defaultCurrency
	}
	if len(currency) != domain.CurrencyCodeLength {
		return nil, domain.NewValidationError("currency", "must be a 3-letter code")
	}

	// 2. Получаем услугу и её шаблон баланса
	service, err := l.services.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			return nil, domain.NewNotFoundError("service", req.ServiceID)
		}
		l.logger.Error("CreatePackage: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: CreatePackage - get service: %w", ErrInternal, err)
	}

	balance, err := service.PackageTemplate()
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			l.logger.Error("CreatePackage: INVARIANT VIOLATION: %v", err)
		}
		return nil, err
	}

	// 3. Сохраняем пакет
	pkg, err := l.packages.Create(ctx, &domain.ServicePackage{
		UserID:      req.UserID,
		ServiceID:   service.ID,
		ServiceName: service.Name,
		Balance:     balance,
		PriceTotal:  req.PriceTotal,
		Currency:    currency,
		Status:      domain.PackageActive,
		StartsOn:    req.StartsOn,
		ExpiresOn:   req.ExpiresOn,
		Notes:       req.Notes,
	})
	if err != nil {
		l.logger.Error("CreatePackage: failed to create package for user=%d: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: CreatePackage - create package: %w", ErrInternal, err)
	}

	l.logger.Info("CreatePackage: created package id=%d (%s %d)", pkg.ID, balance.Kind(), balance.Total())
	return pkg, nil
}

// AcquireForBooking выбирает самый старый активный пакет с остатком сессий, действующий на day.
// Если такого нет, создаёт новый пакет с полным балансом по цене услуги.
func (l *Ledger) AcquireForBooking(ctx context.Context, userID int64, service *domain.Service, day time.Time) (*domain.ServicePackage, bool, error) {
	pkg, err := l.packages.FindOldestActiveWithSessions(ctx, userID, service.ID, day)
	if err == nil {
		return pkg, false, nil
	}
	if errors.Is(err, domain.ErrInvariantViolation) {
		l.logger.Error("AcquireForBooking: INVARIANT VIOLATION: %v", err)
		return nil, false, err
	}
	if !errors.Is(err, packageRepo.ErrPackageNotFound) {
		l.logger.Error("AcquireForBooking: failed to find package user=%d service=%d: %v", userID, service.ID, err)
		return nil, false, fmt.Errorf("%w: AcquireForBooking - find package: %w", ErrInternal, err)
	}

	pkg, err = l.CreatePackage(ctx, &CreatePackageRequest{
		UserID:     userID,
		ServiceID:  service.ID,
		PriceTotal: service.Price,
		Notes:      ptr.Ptr("created automatically at booking"),
	})
	if err != nil {
		return nil, false, err
	}
	return pkg, true, nil
}

// DeductSessions строгое списание сессий: пакет должен быть активным и иметь достаточный остаток
func (l *Ledger) DeductSessions(ctx context.Context, req *DeductRequest) (*domain.ServicePackage, error) {
	return l.deduct(ctx, "DeductSessions", req, func(pkg *domain.ServicePackage) (int, error) {
		return req.Amount, pkg.DeductSessions(req.Amount)
	})
}

// DeductMinutes разрешающее списание минут: баланс может уйти в минус
func (l *Ledger) DeductMinutes(ctx context.Context, req *DeductRequest) (*domain.ServicePackage, error) {
	return l.deduct(ctx, "DeductMinutes", req, func(pkg *domain.ServicePackage) (int, error) {
		return req.Amount, pkg.DeductMinutes(req.Amount)
	})
}

// UseManually списание без записи на приём: для сессий строгое, для минут разрешающее
func (l *Ledger) UseManually(ctx context.Context, req *DeductRequest) (*domain.ServicePackage, error) {
	return l.deduct(ctx, "UseManually", req, func(pkg *domain.ServicePackage) (int, error) {
		if pkg.Balance.IsSessions() {
			return req.Amount, pkg.DeductSessions(req.Amount)
		}
		return req.Amount, pkg.DeductMinutes(req.Amount)
	})
}

// DeductForAppointment списывает с привязанного пакета одну сессию или duration_minutes минут
func (l *Ledger) DeductForAppointment(ctx context.Context, appt *domain.Appointment, staffID *int64) (*domain.ServicePackage, error) {
	if appt.ServicePackageID == nil {
		return nil, domain.NewValidationError("service_package_id", "appointment has no package attached")
	}

	req := &DeductRequest{
		PackageID:      *appt.ServicePackageID,
		StaffID:        staffID,
		Note:           ptr.Ptr("appointment " + appt.ReferenceCode + " completed"),
		AppointmentID:  ptr.Ptr(appt.ID),
		AppointmentRef: ptr.Ptr(appt.ReferenceCode),
	}
	return l.deduct(ctx, "DeductForAppointment", req, func(pkg *domain.ServicePackage) (int, error) {
		if pkg.Balance.IsSessions() {
			return domain.SessionsPerAppointment, pkg.DeductSessions(domain.SessionsPerAppointment)
		}
		return appt.DurationMinutes, pkg.DeductMinutes(appt.DurationMinutes)
	})
}

func (l *Ledger) deduct(
	ctx context.Context,
	op string,
	req *DeductRequest,
	apply func(pkg *domain.ServicePackage) (int, error),
) (*domain.ServicePackage, error) {
	l.logger.Info("%s: package id=%d amount=%d", op, req.PackageID, req.Amount)

	var result *domain.ServicePackage
	err := l.txManager.Do(ctx, func(ctx context.Context) error {
		// 1. Блокируем строку пакета
		pkg, err := l.lockPackage(ctx, op, req.PackageID)
		if err != nil {
			return err
		}

		// 2. Применяем списание к доменной модели
		amount, err := apply(pkg)
		if err != nil {
			return err
		}

		// 3. Сохраняем остаток и пишем запись в журнал
		if err := l.packages.UpdateBalance(ctx, pkg); err != nil {
			return l.packageError(op, pkg.ID, err)
		}

		entry := &domain.PackageLog{
			ServicePackageID: pkg.ID,
			StaffID:          req.StaffID,
			AppointmentID:    req.AppointmentID,
			AppointmentRef:   req.AppointmentRef,
			UsedAt:           l.clock.Now(),
			Note:             req.Note,
		}
		if pkg.Balance.IsSessions() {
			entry.UsedSessions = ptr.Ptr(amount)
		} else {
			entry.UsedMinutes = ptr.Ptr(amount)
		}
		if _, err := l.packages.CreateLog(ctx, entry); err != nil {
			l.logger.Error("%s: failed to write package log id=%d: %v", op, pkg.ID, err)
			return fmt.Errorf("%w: %s - create log: %w", ErrInternal, op, err)
		}

		result = pkg
		return nil
	})
	if err != nil {
		return nil, l.txError(op, err)
	}

	l.metrics.PackageDeducted(string(result.Balance.Kind()))
	if result.HasNegativeBalance() {
		l.logger.Warn("%s: package id=%d balance is negative (%d minutes)", op, result.ID, result.Balance.Remaining())
	}
	l.logger.Info("%s: package id=%d remaining=%d status=%s", op, result.ID, result.Balance.Remaining(), result.Status)
	return result, nil
}

// RestoreDeduction идемпотентно возвращает списание по записи на приём.
// Если последняя запись журнала для этой записи уже является возвратом (нулевое количество)
// или списаний не было, ничего не меняется.
func (l *Ledger) RestoreDeduction(ctx context.Context, req *RestoreRequest) (*RestoreResult, error) {
	if req.AppointmentID == nil && req.AppointmentRef == nil {
		return nil, domain.NewValidationError("appointment", "appointment id or reference is required")
	}
	l.logger.Info("RestoreDeduction: package id=%d", req.PackageID)

	result := &RestoreResult{}
	err := l.txManager.Do(ctx, func(ctx context.Context) error {
		// 1. Блокируем пакет
		pkg, err := l.lockPackage(ctx, "RestoreDeduction", req.PackageID)
		if err != nil {
			return err
		}
		result.Package = pkg

		// 2. Ищем последнюю запись журнала по этой записи на приём
		last, err := l.packages.LatestAppointmentLog(ctx, pkg.ID, req.AppointmentID, req.AppointmentRef)
		if errors.Is(err, packageRepo.ErrLogNotFound) {
			return nil
		}
		if err != nil {
			l.logger.Error("RestoreDeduction: failed to read package log id=%d: %v", pkg.ID, err)
			return fmt.Errorf("%w: RestoreDeduction - read log: %w", ErrInternal, err)
		}
		amount := last.Amount()
		if amount <= 0 {
			return nil
		}

		// 3. Возвращаем баланс и пишем запись-возврат с нулевым количеством
		pkg.Restore(amount)
		if err := l.packages.UpdateBalance(ctx, pkg); err != nil {
			return l.packageError("RestoreDeduction", pkg.ID, err)
		}

		note := req.Note
		if note == nil {
			note = ptr.Ptr(fmt.Sprintf("restored %d %s", amount, pkg.Balance.Kind()))
		}
		entry := &domain.PackageLog{
			ServicePackageID: pkg.ID,
			StaffID:          req.StaffID,
			AppointmentID:    firstSet(req.AppointmentID, last.AppointmentID),
			AppointmentRef:   firstSet(req.AppointmentRef, last.AppointmentRef),
			UsedAt:           l.clock.Now(),
			Note:             note,
		}
		if pkg.Balance.IsSessions() {
			entry.UsedSessions = ptr.Ptr(0)
		} else {
			entry.UsedMinutes = ptr.Ptr(0)
		}
		if _, err := l.packages.CreateLog(ctx, entry); err != nil {
			l.logger.Error("RestoreDeduction: failed to write package log id=%d: %v", pkg.ID, err)
			return fmt.Errorf("%w: RestoreDeduction - create log: %w", ErrInternal, err)
		}

		result.Restored = true
		result.Amount = amount
		return nil
	})
	if err != nil {
		return nil, l.txError("RestoreDeduction", err)
	}

	if !result.Restored {
		l.logger.Info("RestoreDeduction: nothing to restore on package id=%d", req.PackageID)
	} else {
		l.logger.Info("RestoreDeduction: restored %d on package id=%d", result.Amount, req.PackageID)
	}
	return result, nil
}

// RecordPayment принимает платёж по пакету. Сумма неаннулированных платежей не может
// превысить price_total больше чем на PaymentEpsilon.
func (l *Ledger) RecordPayment(ctx context.Context, req *PaymentRequest) (*domain.PackagePayment, error) {
	l.logger.Info("RecordPayment: package id=%d amount=%s method=%s", req.PackageID, req.Amount, req.Method)

	if !req.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	if _, err := domain.ParsePaymentMethod(string(req.Method)); err != nil {
		return nil, err
	}

	var payment *domain.PackagePayment
	err := l.txManager.Do(ctx, func(ctx context.Context) error {
		// 1. Блокируем пакет: платежи по одному пакету выполняются последовательно
		pkg, err := l.lockPackage(ctx, "RecordPayment", req.PackageID)
		if err != nil {
			return err
		}
		if !pkg.PriceTotal.IsPositive() {
			return domain.NewValidationError("price_total", "package has no price to pay")
		}

		// 2. Проверяем потолок платежей
		paid, err := l.packages.SumActivePayments(ctx, pkg.ID)
		if err != nil {
			l.logger.Error("RecordPayment: failed to sum payments id=%d: %v", pkg.ID, err)
			return fmt.Errorf("%w: RecordPayment - sum payments: %w", ErrInternal, err)
		}
		remaining := pkg.PriceTotal.Sub(paid)
		if req.Amount.GreaterThan(remaining.Add(domain.PaymentEpsilonAmount)) {
			return &domain.InsufficientBalanceError{
				PackageID: pkg.ID,
				Unit:      domain.UnitMoney,
				Requested: req.Amount,
				Remaining: remaining,
			}
		}

		// 3. Сохраняем платёж
		payment, err = l.packages.CreatePayment(ctx, &domain.PackagePayment{
			ServicePackageID: ptr.Ptr(pkg.ID),
			UserID:           req.UserID,
			StaffID:          req.StaffID,
			Method:           req.Method,
			Amount:           req.Amount,
			Currency:         pkg.Currency,
			Notes:            req.Notes,
		})
		if err != nil {
			l.logger.Error("RecordPayment: failed to create payment id=%d: %v", pkg.ID, err)
			return fmt.Errorf("%w: RecordPayment - create payment: %w", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, l.txError("RecordPayment", err)
	}

	l.metrics.PaymentRecorded()
	l.logger.Info("RecordPayment: recorded payment id=%d for package id=%d", payment.ID, req.PackageID)
	return payment, nil
}

// VoidPayment аннулирует платёж пакета. Повторное аннулирование ничего не меняет.
func (l *Ledger) VoidPayment(ctx context.Context, packageID, paymentID int64) error {
	l.logger.Info("VoidPayment: package id=%d payment id=%d", packageID, paymentID)

	err := l.txManager.Do(ctx, func(ctx context.Context) error {
		if _, err := l.lockPackage(ctx, "VoidPayment", packageID); err != nil {
			return err
		}

		payment, err := l.packages.GetPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, packageRepo.ErrPaymentNotFound) {
				return domain.NewNotFoundError("package_payment", paymentID)
			}
			l.logger.Error("VoidPayment: failed to get payment id=%d: %v", paymentID, err)
			return fmt.Errorf("%w: VoidPayment - get payment: %w", ErrInternal, err)
		}
		if payment.ServicePackageID == nil || *payment.ServicePackageID != packageID {
			return domain.NewNotFoundError("package_payment", paymentID)
		}
		if payment.VoidedAt != nil {
			return nil
		}

		if err := l.packages.VoidPayment(ctx, paymentID); err != nil && !errors.Is(err, packageRepo.ErrPaymentNotFound) {
			l.logger.Error("VoidPayment: failed to void payment id=%d: %v", paymentID, err)
			return fmt.Errorf("%w: VoidPayment - void payment: %w", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return l.txError("VoidPayment", err)
	}

	l.logger.Info("VoidPayment: payment id=%d voided", paymentID)
	return nil
}

// SetStatus административно переводит пакет в expired или cancelled
func (l *Ledger) SetStatus(ctx context.Context, packageID int64, status domain.PackageStatus) (*domain.ServicePackage, error) {
	l.logger.Info("SetStatus: package id=%d status=%s", packageID, status)

	if status != domain.PackageExpired && status != domain.PackageCancelled {
		return nil, domain.NewValidationError("status", "only expired or cancelled can be set manually")
	}

	var result *domain.ServicePackage
	err := l.txManager.Do(ctx, func(ctx context.Context) error {
		pkg, err := l.lockPackage(ctx, "SetStatus", packageID)
		if err != nil {
			return err
		}
		result = pkg

		if pkg.Status == status {
			return nil
		}
		if pkg.Status == domain.PackageCancelled {
			return domain.NewValidationError("status", "package is cancelled")
		}

		if err := l.packages.UpdateStatus(ctx, pkg.ID, status); err != nil {
			return l.packageError("SetStatus", pkg.ID, err)
		}
		pkg.Status = status
		return nil
	})
	if err != nil {
		return nil, l.txError("SetStatus", err)
	}

	return result, nil
}

// Summary пакет с вычисляемыми amount_paid, remaining_to_pay и признаком отрицательного баланса.
// Пакет и сумма платежей читаются из одного снимка.
func (l *Ledger) Summary(ctx context.Context, packageID int64) (*domain.PackageSummary, error) {
	var summary *domain.PackageSummary
	err := l.txManager.DoReadOnly(ctx, func(ctx context.Context) error {
		pkg, err := l.packages.GetByID(ctx, packageID)
		if err != nil {
			return l.packageError("Summary", packageID, err)
		}

		summary, err = l.summarize(ctx, "Summary", pkg)
		return err
	})
	if err != nil {
		return nil, l.txError("Summary", err)
	}
	return summary, nil
}

// ListForUser пакеты клиента с оплатой по каждому, новые первыми
func (l *Ledger) ListForUser(ctx context.Context, userID int64, status *string) ([]*domain.PackageSummary, error) {
	if userID <= 0 {
		return nil, domain.NewValidationError("userId", "must be positive")
	}
	var statusFilter *domain.PackageStatus
	if status != nil {
		parsed, err := domain.ParsePackageStatus(*status)
		if err != nil {
			return nil, err
		}
		statusFilter = &parsed
	}

	var result []*domain.PackageSummary
	err := l.txManager.DoReadOnly(ctx, func(ctx context.Context) error {
		list, err := l.packages.ListByUser(ctx, userID, statusFilter)
		if err != nil {
			if errors.Is(err, domain.ErrInvariantViolation) {
				l.logger.Error("ListForUser: INVARIANT VIOLATION: %v", err)
				return err
			}
			l.logger.Error("ListForUser: failed to list packages for user id=%d: %v", userID, err)
			return fmt.Errorf("%w: ListForUser - list packages: %w", ErrInternal, err)
		}

		result = make([]*domain.PackageSummary, 0, len(list))
		for _, pkg := range list {
			summary, err := l.summarize(ctx, "ListForUser", pkg)
			if err != nil {
				return err
			}
			result = append(result, summary)
		}
		return nil
	})
	if err != nil {
		return nil, l.txError("ListForUser", err)
	}
	return result, nil
}

func (l *Ledger) summarize(ctx context.Context, op string, pkg *domain.ServicePackage) (*domain.PackageSummary, error) {
	paid, err := l.packages.SumActivePayments(ctx, pkg.ID)
	if err != nil {
		l.logger.Error("%s: failed to sum payments id=%d: %v", op, pkg.ID, err)
		return nil, fmt.Errorf("%w: %s - sum payments: %w", ErrInternal, op, err)
	}

	return &domain.PackageSummary{
		Package:        pkg,
		AmountPaid:     paid,
		RemainingToPay: pkg.PriceTotal.Sub(paid),
		BalanceWarning: pkg.HasNegativeBalance(),
	}, nil
}

// History журнал списаний и все платежи пакета
func (l *Ledger) History(ctx context.Context, packageID int64) (*History, error) {
	var history *History
	err := l.txManager.DoReadOnly(ctx, func(ctx context.Context) error {
		if _, err := l.packages.GetByID(ctx, packageID); err != nil {
			return l.packageError("History", packageID, err)
		}

		logs, err := l.packages.ListLogs(ctx, packageID)
		if err != nil {
			l.logger.Error("History: failed to list logs id=%d: %v", packageID, err)
			return fmt.Errorf("%w: History - list logs: %w", ErrInternal, err)
		}
		payments, err := l.packages.ListPayments(ctx, packageID)
		if err != nil {
			l.logger.Error("History: failed to list payments id=%d: %v", packageID, err)
			return fmt.Errorf("%w: History - list payments: %w", ErrInternal, err)
		}

		history = &History{Logs: logs, Payments: payments}
		return nil
	})
	if err != nil {
		return nil, l.txError("History", err)
	}
	return history, nil
}

func (l *Ledger) lockPackage(ctx context.Context, op string, id int64) (*domain.ServicePackage, error) {
	pkg, err := l.packages.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, l.packageError(op, id, err)
	}
	return pkg, nil
}

func (l *Ledger) packageError(op string, id int64, err error) error {
	switch {
	case errors.Is(err, packageRepo.ErrPackageNotFound):
		return domain.NewNotFoundError("service_package", id)
	case errors.Is(err, domain.ErrInvariantViolation):
		l.logger.Error("%s: INVARIANT VIOLATION: %v", op, err)
		return err
	default:
		l.logger.Error("%s: repository error for package id=%d: %v", op, id, err)
		return fmt.Errorf("%w: %s - package repository: %w", ErrInternal, op, err)
	}
}

// txError переводит проигрыш в конкурентной транзакции в ConflictError
func (l *Ledger) txError(op string, err error) error {
	if errors.Is(err, txmanager.ErrConcurrentUpdate) {
		l.logger.Warn("%s: concurrent update: %v", op, err)
		return domain.NewConcurrencyConflict()
	}
	if domain.IsDomainError(err) || errors.Is(err, ErrInternal) {
		return err
	}
	l.logger.Error("%s: transaction error: %v", op, err)
	return fmt.Errorf("%w: %s - transaction: %w", ErrInternal, op, err)
}

func firstSet[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
