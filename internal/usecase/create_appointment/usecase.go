package create_appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	catalogRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ClinicService/internal/scheduling"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/refcode"
	"github.com/m04kA/SMC-ClinicService/pkg/txmanager"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// UseCase use case для создания записи на приём
type UseCase struct {
	appointments AppointmentRepository
	logs         LogRepository
	catalog      CatalogRepository
	calendars    CalendarLoader
	guard        ConflictGuard
	ledger       PackageLedger
	txManager    TransactionManager
	timeProvider TimeProvider
	metrics      MetricsRecorder
	config       domain.SchedulingConfig
	logger       Logger

	// generateCode подменяется в тестах
	generateCode func() (string, error)
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointments AppointmentRepository,
	logs LogRepository,
	catalog CatalogRepository,
	calendars CalendarLoader,
	guard ConflictGuard,
	ledger PackageLedger,
	txManager TransactionManager,
	timeProvider TimeProvider,
	metrics MetricsRecorder,
	config domain.SchedulingConfig,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointments: appointments,
		logs:         logs,
		catalog:      catalog,
		calendars:    calendars,
		guard:        guard,
		ledger:       ledger,
		txManager:    txManager,
		timeProvider: timeProvider,
		metrics:      metrics,
		config:       config,
		logger:       logger,
		generateCode: func() (string, error) { return refcode.Generate(refcode.DefaultLength) },
	}
}

// Execute выполняет use case создания записи.
// Проверка пересечений и вставка выполняются в одной сериализуемой транзакции.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateAppointment: service=%d, date=%s, time=%s",
		req.ServiceID, req.Date.Format(domain.DateFormat), req.StartTime)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateAppointment: validation failed: %v", err)
		return nil, err
	}
	date := uc.config.DateIn(req.Date)
	start, err := types.NewTimeStringFromString(string(req.StartTime))
	if err != nil {
		return nil, domain.NewValidationError("start_time", err.Error())
	}

	// 2. Получаем услугу
	service, err := uc.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			uc.logger.Warn("CreateAppointment: service id=%d not found", req.ServiceID)
			return nil, domain.NewNotFoundError("service", req.ServiceID)
		}
		uc.logger.Error("CreateAppointment: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: Execute - get service: %w", ErrInternal, err)
	}
	if !service.CanBeBooked() {
		uc.logger.Warn("CreateAppointment: service id=%d is not bookable", service.ID)
		return nil, domain.NewValidationError("service_id", "service is not available for booking")
	}

	// 3. Проверяем выбранное время: рабочий день, прошлое, минимальный запас
	err = scheduling.ValidateSlotStart(scheduling.SlotParams{
		Date:             date,
		Now:              uc.timeProvider.Now().In(uc.config.Location),
		DurationMinutes:  service.DurationMinutes,
		StepMinutes:      uc.config.SlotStepMinutes,
		WorkdayStart:     uc.config.WorkdayStart,
		WorkdayEnd:       uc.config.WorkdayEnd,
		MinNoticeMinutes: uc.config.MinNoticeMinutes,
		AllowPastDates:   uc.config.AllowPastDates,
	}, start)
	if err != nil {
		uc.logger.Warn("CreateAppointment: slot validation failed: %v", err)
		return nil, err
	}
	end, err := start.AddMinutes(service.DurationMinutes)
	if err != nil {
		return nil, domain.NewValidationError("start_time", "appointment crosses midnight")
	}

	// 4. Кандидаты и их календари на день
	candidates, err := uc.candidates(ctx, service.ID, req.StaffID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		uc.logger.Warn("CreateAppointment: no staff provides service=%d", service.ID)
		return nil, &domain.ConflictError{Axis: domain.AxisNoStaff, ServiceID: service.ID}
	}

	calendars, err := uc.calendars.Load(ctx, candidates, date)
	if err != nil {
		return nil, fmt.Errorf("%w: Execute - load calendars: %w", ErrInternal, err)
	}

	resp := &Response{}

	// 5. Проверка пересечений и создание записи в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 5.1. Повтор запроса с ключом идемпотентности
		if req.IdempotencyKey != "" && req.UserID != nil {
			existing, err := uc.findExisting(txCtx, req, service.ID, date, start)
			if err != nil {
				return err
			}
			if existing != nil {
				resp.Appointment = existing
				resp.Idempotent = true
				return nil
			}
		}

		// 5.2. Перебираем кандидатов по порядку, берём первого свободного
		staff, err := uc.pickStaff(txCtx, req, service, calendars, date, start, end)
		if err != nil {
			return err
		}

		// 5.3. Уникальный код записи
		code, err := uc.newReferenceCode(txCtx)
		if err != nil {
			return err
		}

		// 5.4. Создаём запись со снимком длительности и цены
		appt, err := uc.appointments.Create(txCtx, &domain.Appointment{
			ServiceID:       service.ID,
			StaffID:         ptr.Ptr(staff.ID),
			UserID:          req.UserID,
			Date:            date,
			StartTime:       start,
			DurationMinutes: service.DurationMinutes,
			Price:           service.Price,
			Status:          domain.StatusPending,
			ReferenceCode:   code,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			CustomerEmail:   req.CustomerEmail,
			Notes:           req.Notes,
		})
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: Execute - create appointment: %w", ErrInternal, err)
		}

		if err := uc.appendLog(txCtx, appt.ID, domain.ActionCreated, map[string]interface{}{
			"reference_code": appt.ReferenceCode,
			"service_id":     appt.ServiceID,
			"staff_id":       staff.ID,
			"date":           date.Format(domain.DateFormat),
			"start_time":     start.String(),
		}, req.ActorID); err != nil {
			return err
		}
		resp.Appointment = appt
		resp.Events = append(resp.Events, domain.Event{
			Type:          domain.EventAppointmentCreated,
			AppointmentID: appt.ID,
			Payload:       map[string]interface{}{"reference_code": appt.ReferenceCode, "staff_id": staff.ID},
		})

		// 5.5. Услуга-пакет сессий: привязываем самый старый подходящий пакет или создаём новый
		if service.IsSessionsPackage() && req.UserID != nil {
			return uc.attachPackage(txCtx, req, service, appt, resp)
		}
		return nil
	})
	if err != nil {
		return nil, uc.txError(err)
	}

	if resp.Idempotent {
		uc.logger.Info("CreateAppointment: idempotent replay, appointment id=%d", resp.Appointment.ID)
		return resp, nil
	}

	uc.metrics.AppointmentCreated()
	uc.logger.Info("CreateAppointment: successfully created appointment id=%d ref=%s staff=%d",
		resp.Appointment.ID, resp.Appointment.ReferenceCode, *resp.Appointment.StaffID)
	return resp, nil
}

// candidates возвращает сотрудников для подбора: выбранного клиентом или всех, кто оказывает услугу
func (uc *UseCase) candidates(ctx context.Context, serviceID int64, staffID *int64) ([]domain.Staff, error) {
	if staffID == nil {
		staff, err := uc.catalog.ListCapableStaff(ctx, serviceID)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to list staff for service=%d: %v", serviceID, err)
			return nil, fmt.Errorf("%w: candidates - list staff: %w", ErrInternal, err)
		}
		return staff, nil
	}

	member, err := uc.catalog.GetStaff(ctx, *staffID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrStaffNotFound) {
			uc.logger.Warn("CreateAppointment: staff id=%d not found", *staffID)
			return nil, domain.NewNotFoundError("staff", *staffID)
		}
		uc.logger.Error("CreateAppointment: failed to get staff id=%d: %v", *staffID, err)
		return nil, fmt.Errorf("%w: candidates - get staff: %w", ErrInternal, err)
	}

	capable, err := uc.catalog.IsStaffCapable(ctx, member.ID, serviceID)
	if err != nil {
		uc.logger.Error("CreateAppointment: failed to check staff id=%d: %v", member.ID, err)
		return nil, fmt.Errorf("%w: candidates - check capability: %w", ErrInternal, err)
	}
	if !capable || !member.IsActive {
		uc.logger.Warn("CreateAppointment: staff id=%d does not provide service=%d", member.ID, serviceID)
		return nil, domain.NewValidationError("staff_id", "selected staff is not available for this service")
	}
	return []domain.Staff{*member}, nil
}

// pickStaff возвращает первого кандидата, который работает в это время и проходит проверку пересечений.
// Конфликт по сотруднику переходит к следующему кандидату, конфликт по услуге завершает подбор.
func (uc *UseCase) pickStaff(
	ctx context.Context,
	req *Request,
	service *domain.Service,
	calendars []scheduling.StaffCalendar,
	date time.Time,
	start, end types.TimeString,
) (*domain.Staff, error) {
	available := make([]scheduling.StaffCalendar, 0, len(calendars))
	staffIDs := make([]int64, 0, len(calendars))
	for _, cal := range calendars {
		if scheduling.IsStaffAvailable(cal, date, start, end) {
			available = append(available, cal)
			staffIDs = append(staffIDs, cal.Staff.ID)
		}
	}

	// Блокируем всех кандидатов сразу, затем услугу: иначе между кандидатами
	// блокировка услуги оказалась бы взята раньше блокировки следующего сотрудника
	if len(available) > 0 {
		if err := uc.guard.LockDay(ctx, date, staffIDs, service.ID); err != nil {
			return nil, err
		}
	}

	var lastConflict *domain.ConflictError
	for i := range available {
		cal := available[i]

		err := uc.guard.AssertNoOverlap(ctx, domain.OverlapQuery{
			Date:            date,
			StartTime:       start,
			DurationMinutes: service.DurationMinutes,
			ServiceID:       service.ID,
			StaffID:         ptr.Ptr(cal.Staff.ID),
			SkipLock:        true,
		})
		if err == nil {
			return &cal.Staff, nil
		}

		var conflict *domain.ConflictError
		if errors.As(err, &conflict) && conflict.Axis == domain.AxisStaff {
			lastConflict = conflict
			continue
		}
		return nil, err
	}

	if req.StaffID != nil {
		if lastConflict != nil {
			return nil, lastConflict
		}
		uc.logger.Warn("CreateAppointment: staff id=%d does not work at %s", *req.StaffID, start)
		return nil, domain.NewValidationError("staff_id", "selected staff does not work at that time")
	}

	uc.logger.Warn("CreateAppointment: no staff available for service=%d at %s", service.ID, start)
	return nil, &domain.ConflictError{Axis: domain.AxisNoStaff, ServiceID: service.ID}
}

// findExisting ищет активную запись того же клиента на тот же слот
func (uc *UseCase) findExisting(ctx context.Context, req *Request, serviceID int64, date time.Time, start types.TimeString) (*domain.Appointment, error) {
	appts, err := uc.appointments.ListBlockingForDay(ctx, domain.DayAppointmentsFilter{
		Date:      date,
		ServiceID: ptr.Ptr(serviceID),
	})
	if err != nil {
		uc.logger.Error("CreateAppointment: failed to look up existing appointment: %v", err)
		return nil, fmt.Errorf("%w: findExisting - list appointments: %w", ErrInternal, err)
	}

	for _, a := range appts {
		if a.ServiceID != serviceID || !a.StartTime.Equal(start) || a.UserID == nil || *a.UserID != *req.UserID {
			continue
		}
		if a.Status != domain.StatusPending && a.Status != domain.StatusConfirmed {
			continue
		}
		if req.StaffID != nil && (a.StaffID == nil || *a.StaffID != *req.StaffID) {
			continue
		}
		return a, nil
	}
	return nil, nil
}

// newReferenceCode подбирает код, которого ещё нет в таблице записей
func (uc *UseCase) newReferenceCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= domain.MaxReferenceAttempts; attempt++ {
		code, err := uc.generateCode()
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to generate reference code: %v", err)
			return "", fmt.Errorf("%w: newReferenceCode - generate: %w", ErrInternal, err)
		}

		exists, err := uc.appointments.ReferenceExists(ctx, code)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to check reference code: %v", err)
			return "", fmt.Errorf("%w: newReferenceCode - check: %w", ErrInternal, err)
		}
		if !exists {
			return code, nil
		}
		uc.logger.Warn("CreateAppointment: reference code collision, attempt %d", attempt)
	}
	return "", ErrReferenceExhausted
}

func (uc *UseCase) attachPackage(ctx context.Context, req *Request, service *domain.Service, appt *domain.Appointment, resp *Response) error {
	pkg, created, err := uc.ledger.AcquireForBooking(ctx, *req.UserID, service, appt.Date)
	if err != nil {
		return err
	}

	if err := uc.appointments.UpdatePackage(ctx, appt.ID, ptr.Ptr(pkg.ID)); err != nil {
		uc.logger.Error("CreateAppointment: failed to attach package id=%d to appointment id=%d: %v", pkg.ID, appt.ID, err)
		return fmt.Errorf("%w: attachPackage - update appointment: %w", ErrInternal, err)
	}
	appt.ServicePackageID = ptr.Ptr(pkg.ID)

	if err := uc.appendLog(ctx, appt.ID, domain.ActionPackageAttached, map[string]interface{}{
		"package_id": pkg.ID,
		"created":    created,
	}, req.ActorID); err != nil {
		return err
	}

	if created {
		resp.Events = append(resp.Events, domain.Event{
			Type:          domain.EventPackageCreated,
			AppointmentID: appt.ID,
			PackageID:     ptr.Ptr(pkg.ID),
		})
	}
	resp.Events = append(resp.Events, domain.Event{
		Type:          domain.EventPackageAttached,
		AppointmentID: appt.ID,
		PackageID:     ptr.Ptr(pkg.ID),
	})
	resp.Package = pkg
	resp.PackageCreated = created
	return nil
}

func (uc *UseCase) appendLog(ctx context.Context, appointmentID int64, action domain.LogAction, meta map[string]interface{}, actorID *int64) error {
	_, err := uc.logs.Append(ctx, &domain.AppointmentLog{
		AppointmentID: appointmentID,
		Action:        action,
		Meta:          meta,
		UserID:        actorID,
	})
	if err != nil {
		uc.logger.Error("CreateAppointment: failed to append %s log for appointment id=%d: %v", action, appointmentID, err)
		return fmt.Errorf("%w: appendLog: %w", ErrInternal, err)
	}
	return nil
}

func (uc *UseCase) txError(err error) error {
	if errors.Is(err, txmanager.ErrConcurrentUpdate) {
		uc.logger.Warn("CreateAppointment: lost a concurrent booking race: %v", err)
		return domain.NewConcurrencyConflict()
	}
	if domain.IsDomainError(err) || errors.Is(err, ErrInternal) || errors.Is(err, ErrReferenceExhausted) {
		if errors.Is(err, domain.ErrInvariantViolation) {
			uc.logger.Error("CreateAppointment: INVARIANT VIOLATION: %v", err)
		}
		return err
	}
	uc.logger.Error("CreateAppointment: transaction error: %v", err)
	return fmt.Errorf("%w: Execute - transaction: %w", ErrInternal, err)
}
