package get_available_slots

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	catalogRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-ClinicService/internal/scheduling"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
)

// UseCase use case для получения доступных слотов для записи
type UseCase struct {
	catalog      CatalogRepository
	appointments AppointmentRepository
	calendars    CalendarLoader
	timeProvider TimeProvider
	config       domain.SchedulingConfig
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	catalog CatalogRepository,
	appointments AppointmentRepository,
	calendars CalendarLoader,
	timeProvider TimeProvider,
	config domain.SchedulingConfig,
	logger Logger,
) *UseCase {
	return &UseCase{
		catalog:      catalog,
		appointments: appointments,
		calendars:    calendars,
		timeProvider: timeProvider,
		config:       config,
		logger:       logger,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: service=%d, date=%s", req.ServiceID, req.Date.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	step := req.StepMinutes
	if step == 0 {
		step = uc.config.SlotStepMinutes
	}
	date := uc.config.DateIn(req.Date)

	// 2. Получаем услугу
	service, err := uc.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			uc.logger.Warn("GetAvailableSlots: service id=%d not found", req.ServiceID)
			return nil, domain.NewNotFoundError("service", req.ServiceID)
		}
		uc.logger.Error("GetAvailableSlots: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: Execute - get service: %w", ErrInternal, err)
	}
	if !service.CanBeBooked() {
		uc.logger.Warn("GetAvailableSlots: service id=%d is not bookable", req.ServiceID)
		return nil, domain.NewValidationError("service_id", "service is not available for booking")
	}

	response := &Response{
		Date:            date,
		ServiceID:       service.ID,
		StaffID:         req.StaffID,
		DurationMinutes: service.DurationMinutes,
		StepMinutes:     step,
		Slots:           []domain.Slot{},
	}

	// 3. Определяем сотрудников, которые могут оказать услугу
	staff, err := uc.eligibleStaff(ctx, service.ID, req.StaffID)
	if err != nil {
		return nil, err
	}
	if len(staff) == 0 {
		uc.logger.Info("GetAvailableSlots: no eligible staff for service=%d", service.ID)
		return response, nil
	}

	staffIDs := make([]int64, len(staff))
	for i, s := range staff {
		staffIDs[i] = s.ID
	}

	// 4. Один раз на запрос загружаем календари и записи дня
	var (
		calendars    []scheduling.StaffCalendar
		appointments []*domain.Appointment
	)
	g, gctx := errgroup.WithContext(ctx)
	if dbmetrics.IsInTransaction(ctx) {
		g.SetLimit(1)
	}
	g.Go(func() error {
		var err error
		calendars, err = uc.calendars.Load(gctx, staff, date)
		return err
	})
	g.Go(func() error {
		var err error
		appointments, err = uc.appointments.ListBlockingForDay(gctx, domain.DayAppointmentsFilter{
			Date:      date,
			ServiceID: ptr.Ptr(service.ID),
			StaffIDs:  staffIDs,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		uc.logger.Error("GetAvailableSlots: failed to prefetch day service=%d: %v", service.ID, err)
		return nil, fmt.Errorf("%w: Execute - prefetch: %w", ErrInternal, err)
	}

	// 5. Генерируем слоты без дополнительных запросов
	slots, err := scheduling.GenerateSlots(scheduling.SlotParams{
		Date:             date,
		Now:              uc.timeProvider.Now().In(uc.config.Location),
		DurationMinutes:  service.DurationMinutes,
		StepMinutes:      step,
		WorkdayStart:     uc.config.WorkdayStart,
		WorkdayEnd:       uc.config.WorkdayEnd,
		MinNoticeMinutes: uc.config.MinNoticeMinutes,
		AllowPastDates:   uc.config.AllowPastDates,
	}, calendars, scheduling.BuildDayBookings(appointments, service.ID, uc.config.Location))
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to generate slots service=%d: %v", service.ID, err)
		return nil, err
	}

	uc.logger.Info("GetAvailableSlots: generated %d slots for service=%d, date=%s",
		len(slots), service.ID, date.Format(domain.DateFormat))

	response.Slots = slots
	return response, nil
}

// eligibleStaff возвращает активных сотрудников услуги или только запрошенного, если он её оказывает
func (uc *UseCase) eligibleStaff(ctx context.Context, serviceID int64, staffID *int64) ([]domain.Staff, error) {
	if staffID == nil {
		staff, err := uc.catalog.ListCapableStaff(ctx, serviceID)
		if err != nil {
			uc.logger.Error("GetAvailableSlots: failed to list staff for service=%d: %v", serviceID, err)
			return nil, fmt.Errorf("%w: eligibleStaff - list staff: %w", ErrInternal, err)
		}
		return staff, nil
	}

	member, err := uc.catalog.GetStaff(ctx, *staffID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrStaffNotFound) {
			uc.logger.Warn("GetAvailableSlots: staff id=%d not found", *staffID)
			return nil, domain.NewNotFoundError("staff", *staffID)
		}
		uc.logger.Error("GetAvailableSlots: failed to get staff id=%d: %v", *staffID, err)
		return nil, fmt.Errorf("%w: eligibleStaff - get staff: %w", ErrInternal, err)
	}

	capable, err := uc.catalog.IsStaffCapable(ctx, member.ID, serviceID)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to check staff id=%d: %v", member.ID, err)
		return nil, fmt.Errorf("%w: eligibleStaff - check capability: %w", ErrInternal, err)
	}
	if !capable || !member.IsActive {
		return []domain.Staff{}, nil
	}
	return []domain.Staff{*member}, nil
}
