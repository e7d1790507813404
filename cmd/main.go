package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appointmentPackageHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/appointment_package"
	changeStatusHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/change_appointment_status"
	createAppointmentHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/create_appointment"
	createPackageHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/create_package"
	deleteAppointmentHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/delete_appointment"
	getAppointmentHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/get_appointment"
	getAppointmentLogsHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/get_appointment_logs"
	getAvailableSlotsHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/get_available_slots"
	getPackageHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/get_package"
	getUserPackagesHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/get_user_packages"
	listAppointmentsHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/list_appointments"
	packagePaymentsHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/package_payments"
	recordPaymentHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/record_appointment_payment"
	rescheduleHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/reschedule_appointment"
	revertCompletionHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/revert_completion"
	updateNotesHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/update_appointment_notes"
	updatePackageStatusHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/update_package_status"
	usePackageHandler "github.com/m04kA/SMC-ClinicService/internal/api/handlers/use_package"
	"github.com/m04kA/SMC-ClinicService/internal/api/middleware"
	"github.com/m04kA/SMC-ClinicService/internal/config"
	appointmentRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/appointment"
	appointmentLogRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/appointmentlog"
	catalogRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/catalog"
	packageRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/servicepackage"
	appointmentsService "github.com/m04kA/SMC-ClinicService/internal/service/appointments"
	calendarService "github.com/m04kA/SMC-ClinicService/internal/service/calendar"
	conflictsService "github.com/m04kA/SMC-ClinicService/internal/service/conflicts"
	packagesService "github.com/m04kA/SMC-ClinicService/internal/service/packages"
	transitionsUC "github.com/m04kA/SMC-ClinicService/internal/usecase/appointment_transitions"
	createAppointmentUC "github.com/m04kA/SMC-ClinicService/internal/usecase/create_appointment"
	getAvailableSlotsUC "github.com/m04kA/SMC-ClinicService/internal/usecase/get_available_slots"
	rescheduleUC "github.com/m04kA/SMC-ClinicService/internal/usecase/reschedule_appointment"
	revertCompletionUC "github.com/m04kA/SMC-ClinicService/internal/usecase/revert_completion"
	"github.com/m04kA/SMC-ClinicService/pkg/clock"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicService/pkg/logger"
	"github.com/m04kA/SMC-ClinicService/pkg/metrics"
	"github.com/m04kA/SMC-ClinicService/pkg/txmanager"
)

// businessMetrics бизнес-счётчики: *metrics.Metrics или metrics.Noop
type businessMetrics interface {
	AppointmentCreated()
	ConflictDetected(axis string)
	StatusChanged(from, to string)
	PackageDeducted(kind string)
	PaymentRecorded()
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-ClinicService...")
	log.Info("Configuration loaded from config.toml")

	schedulingCfg, err := cfg.SchedulingConfig()
	if err != nil {
		log.Fatal("Failed to resolve clinic config: %v", err)
	}
	clinicClock, err := clock.NewLocation(cfg.Clinic.Timezone)
	if err != nil {
		log.Fatal("Failed to load clinic timezone: %v", err)
	}
	log.Info("Clinic schedule: timezone=%s, workday=%s-%s, step=%dm, min_notice=%dm",
		cfg.Clinic.Timezone, schedulingCfg.WorkdayStart, schedulingCfg.WorkdayEnd,
		schedulingCfg.SlotStepMinutes, schedulingCfg.MinNoticeMinutes)

	// Инициализируем метрики (если включены)
	var (
		metricsCollector *metrics.Metrics
		recorder         businessMetrics = metrics.Noop{}
	)
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		recorder = metricsCollector
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Без коллектора обёртка только пробрасывает запросы
	wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	// Инициализируем репозитории
	appointmentRepository := appointmentRepo.NewRepository(wrappedDB)
	appointmentLogRepository := appointmentLogRepo.NewRepository(wrappedDB)
	catalogRepository := catalogRepo.NewRepository(wrappedDB)
	packageRepository := packageRepo.NewRepository(wrappedDB)

	// Инициализируем сервисы
	calendarLoader := calendarService.NewLoader(catalogRepository, log)
	conflictGuard := conflictsService.NewGuard(appointmentRepository, schedulingCfg.Location, recorder, log)
	packageLedger := packagesService.NewLedger(
		packageRepository,
		catalogRepository,
		txMgr,
		clinicClock,
		recorder,
		log,
		schedulingCfg.DefaultCurrency,
	)
	appointmentSvc := appointmentsService.NewService(
		appointmentRepository,
		appointmentLogRepository,
		packageRepository,
		txMgr,
		clinicClock,
		recorder,
		log,
		schedulingCfg.DefaultCurrency,
	)

	// Инициализируем use cases
	createAppointmentUseCase := createAppointmentUC.NewUseCase(
		appointmentRepository,
		appointmentLogRepository,
		catalogRepository,
		calendarLoader,
		conflictGuard,
		packageLedger,
		txMgr,
		clinicClock,
		recorder,
		schedulingCfg,
		log,
	)
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		catalogRepository,
		appointmentRepository,
		calendarLoader,
		clinicClock,
		schedulingCfg,
		log,
	)
	transitionsUseCase := transitionsUC.NewUseCase(
		appointmentRepository,
		appointmentLogRepository,
		conflictGuard,
		packageLedger,
		txMgr,
		clinicClock,
		schedulingCfg,
		recorder,
		log,
	)
	rescheduleUseCase := rescheduleUC.NewUseCase(
		appointmentRepository,
		appointmentLogRepository,
		catalogRepository,
		calendarLoader,
		conflictGuard,
		txMgr,
		clinicClock,
		schedulingCfg,
		log,
	)
	revertCompletionUseCase := revertCompletionUC.NewUseCase(
		appointmentRepository,
		appointmentLogRepository,
		packageLedger,
		txMgr,
		recorder,
		log,
	)

	// Инициализируем handlers
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	createAppointment := createAppointmentHandler.NewHandler(createAppointmentUseCase, log)
	getAppointment := getAppointmentHandler.NewHandler(appointmentSvc, log)
	getAppointmentLogs := getAppointmentLogsHandler.NewHandler(appointmentSvc, log)
	listAppointments := listAppointmentsHandler.NewHandler(appointmentSvc, log)
	changeStatus := changeStatusHandler.NewHandler(transitionsUseCase, log)
	reschedule := rescheduleHandler.NewHandler(rescheduleUseCase, log)
	updateNotes := updateNotesHandler.NewHandler(appointmentSvc, log)
	appointmentPackage := appointmentPackageHandler.NewHandler(appointmentSvc, log)
	deleteAppointment := deleteAppointmentHandler.NewHandler(appointmentSvc, log)
	recordPayment := recordPaymentHandler.NewHandler(appointmentSvc, log)
	revertCompletion := revertCompletionHandler.NewHandler(revertCompletionUseCase, log)
	createPackage := createPackageHandler.NewHandler(packageLedger, log)
	getPackage := getPackageHandler.NewHandler(packageLedger, log)
	getUserPackages := getUserPackagesHandler.NewHandler(packageLedger, log)
	usePackage := usePackageHandler.NewHandler(packageLedger, log)
	packagePayments := packagePaymentsHandler.NewHandler(packageLedger, log)
	updatePackageStatus := updatePackageStatusHandler.NewHandler(packageLedger, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		log.Info("HTTP metrics middleware enabled")

		// Metrics endpoint (публичный, без аутентификации)
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Свободные слоты услуги на дату
	api.HandleFunc("/services/{serviceId}/available-slots", getAvailableSlots.Handle).Methods(http.MethodGet)

	// Поиск записи по коду бронирования
	api.HandleFunc("/appointments/by-reference/{reference}", getAppointment.HandleByReference).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Записи на приём ---
	protected.HandleFunc("/appointments", createAppointment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments", listAppointments.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}", deleteAppointment.Handle).Methods(http.MethodDelete)
	protected.HandleFunc("/appointments/{appointmentId}/logs", getAppointmentLogs.Handle).Methods(http.MethodGet)

	// Смена статуса: confirmed, completed, cancelled, no_show
	protected.HandleFunc("/appointments/{appointmentId}/status", changeStatus.Handle).Methods(http.MethodPatch)

	// Перенос и смена специалиста
	protected.HandleFunc("/appointments/{appointmentId}/reschedule", reschedule.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/appointments/{appointmentId}/staff", reschedule.HandleAssignStaff).Methods(http.MethodPatch)

	protected.HandleFunc("/appointments/{appointmentId}/notes", updateNotes.Handle).Methods(http.MethodPatch)

	// Привязка пакета
	protected.HandleFunc("/appointments/{appointmentId}/package", appointmentPackage.HandleAttach).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/package", appointmentPackage.HandleDetach).Methods(http.MethodDelete)

	protected.HandleFunc("/appointments/{appointmentId}/payments", recordPayment.Handle).Methods(http.MethodPost)

	// --- Администрирование ---
	protected.HandleFunc("/admin/appointments/{appointmentId}/revert-completion",
		revertCompletion.Handle).Methods(http.MethodPost)

	// --- Пакеты услуг ---
	protected.HandleFunc("/packages", createPackage.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/packages/{packageId}", getPackage.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/packages/{packageId}/use", usePackage.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/packages/{packageId}/status", updatePackageStatus.Handle).Methods(http.MethodPatch)
	protected.HandleFunc("/packages/{packageId}/payments", packagePayments.HandleRecord).Methods(http.MethodPost)
	protected.HandleFunc("/packages/{packageId}/payments/{paymentId}", packagePayments.HandleVoid).Methods(http.MethodDelete)
	protected.HandleFunc("/users/{userId}/packages", getUserPackages.Handle).Methods(http.MethodGet)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
