package servicepackage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicService/pkg/psqlbuilder"
)

const (
	packagesTable = "service_packages"
	logsTable     = "package_logs"
	paymentsTable = "package_payments"
)

var packageColumns = []string{
	"id",
	"user_id",
	"service_id",
	"service_name",
	"total_sessions",
	"remaining_sessions",
	"total_minutes",
	"remaining_minutes",
	"price_total",
	"currency",
	"status",
	"starts_on",
	"expires_on",
	"notes",
	"created_at",
	"updated_at",
}

var logColumns = []string{
	"id",
	"service_package_id",
	"staff_id",
	"appointment_id",
	"appointment_ref",
	"used_sessions",
	"used_minutes",
	"used_at",
	"note",
	"created_at",
}

var paymentColumns = []string{
	"id",
	"service_package_id",
	"appointment_id",
	"user_id",
	"staff_id",
	"method",
	"amount",
	"currency",
	"notes",
	"voided_at",
	"created_at",
}

// Repository репозиторий пакетов услуг, журнала списаний и платежей
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория пакетов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новый пакет
func (r *Repository) Create(ctx context.Context, p *domain.ServicePackage) (*domain.ServicePackage, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	totalSessions, remainingSessions, totalMinutes, remainingMinutes := p.Balance.Columns()

	query, args, err := psqlbuilder.Insert(packagesTable).
		Columns(
			"user_id",
			"service_id",
			"service_name",
			"total_sessions",
			"remaining_sessions",
			"total_minutes",
			"remaining_minutes",
			"price_total",
			"currency",
			"status",
			"starts_on",
			"expires_on",
			"notes",
		).
		Values(
			p.UserID,
			p.ServiceID,
			p.ServiceName,
			totalSessions,
			remainingSessions,
			totalMinutes,
			remainingMinutes,
			p.PriceTotal,
			p.Currency,
			string(p.Status),
			formatDate(p.StartsOn),
			formatDate(p.ExpiresOn),
			p.Notes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %w", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	return p, nil
}

// GetByID получает пакет по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.ServicePackage, error) {
	return r.getOne(ctx, "GetByID", id, false)
}

// ListByUser возвращает пакеты клиента, новые первыми. status сужает выборку
func (r *Repository) ListByUser(ctx context.Context, userID int64, status *domain.PackageStatus) ([]*domain.ServicePackage, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(packageColumns...).
		From(packagesTable).
		Where(squirrel.Eq{"user_id": userID})
	if status != nil {
		builder = builder.Where(squirrel.Eq{"status": string(*status)})
	}

	query, args, err := builder.OrderBy("created_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByUser - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByUser - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.ServicePackage, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByUser: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByUser - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}

// GetByIDForUpdate получает пакет по ID; в транзакции строка блокируется (FOR UPDATE)
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServicePackage, error) {
	return r.getOne(ctx, "GetByIDForUpdate", id, dbmetrics.IsInTransaction(ctx))
}

func (r *Repository) getOne(ctx context.Context, op string, id int64, forUpdate bool) (*domain.ServicePackage, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(packageColumns...).
		From(packagesTable).
		Where(squirrel.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %w", ErrBuildQuery, op, err)
	}

	p, err := scanPackage(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// FindOldestActiveWithSessions ищет пакет для автоматической привязки к записи:
// активный, с остатком сессий > 0 и действующий на дату day.
// Порядок: starts_on (NULL первыми), затем created_at, затем id.
func (r *Repository) FindOldestActiveWithSessions(ctx context.Context, userID, serviceID int64, day time.Time) (*domain.ServicePackage, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	date := day.Format(domain.DateFormat)
	builder := psqlbuilder.Select(packageColumns...).
		From(packagesTable).
		Where(squirrel.Eq{
			"user_id":    userID,
			"service_id": serviceID,
			"status":     string(domain.PackageActive),
		}).
		Where(squirrel.Gt{"remaining_sessions": 0}).
		Where(squirrel.Or{squirrel.Eq{"starts_on": nil}, squirrel.LtOrEq{"starts_on": date}}).
		Where(squirrel.Or{squirrel.Eq{"expires_on": nil}, squirrel.GtOrEq{"expires_on": date}}).
		OrderBy("starts_on ASC NULLS FIRST", "created_at ASC", "id ASC").
		Limit(1)
	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: FindOldestActiveWithSessions - build select query: %w", ErrBuildQuery, err)
	}

	p, err := scanPackage(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindOldestActiveWithSessions: %w", err)
	}

	return p, nil
}

// UpdateBalance сохраняет остаток и статус пакета после списания или возврата
func (r *Repository) UpdateBalance(ctx context.Context, p *domain.ServicePackage) error {
	_, remainingSessions, _, remainingMinutes := p.Balance.Columns()
	return r.updatePackage(ctx, "UpdateBalance", p.ID, map[string]interface{}{
		"remaining_sessions": remainingSessions,
		"remaining_minutes":  remainingMinutes,
		"status":             string(p.Status),
	})
}

// UpdateStatus обновляет статус пакета
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.PackageStatus) error {
	return r.updatePackage(ctx, "UpdateStatus", id, map[string]interface{}{"status": string(status)})
}

func (r *Repository) updatePackage(ctx context.Context, op string, id int64, values map[string]interface{}) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	values["updated_at"] = squirrel.Expr("NOW()")

	query, args, err := psqlbuilder.Update(packagesTable).
		SetMap(values).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s - build update query: %w", ErrBuildQuery, op, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %w", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %w", ErrExecQuery, op, err)
	}
	if rowsAffected == 0 {
		return ErrPackageNotFound
	}

	return nil
}

// CreateLog добавляет запись в журнал пакета
func (r *Repository) CreateLog(ctx context.Context, l *domain.PackageLog) (*domain.PackageLog, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(logsTable).
		Columns(
			"service_package_id",
			"staff_id",
			"appointment_id",
			"appointment_ref",
			"used_sessions",
			"used_minutes",
			"used_at",
			"note",
		).
		Values(
			l.ServicePackageID,
			l.StaffID,
			l.AppointmentID,
			l.AppointmentRef,
			l.UsedSessions,
			l.UsedMinutes,
			l.UsedAt,
			l.Note,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CreateLog - build insert query: %w", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&l.ID, &l.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: CreateLog - execute insert: %w", ErrExecQuery, err)
	}

	return l, nil
}

// LatestAppointmentLog возвращает последнюю запись журнала пакета для записи на приём,
// найденную по ID записи или по коду бронирования.
func (r *Repository) LatestAppointmentLog(ctx context.Context, packageID int64, appointmentID *int64, appointmentRef *string) (*domain.PackageLog, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	match := squirrel.Or{}
	if appointmentID != nil {
		match = append(match, squirrel.Eq{"appointment_id": *appointmentID})
	}
	if appointmentRef != nil {
		match = append(match, squirrel.Eq{"appointment_ref": *appointmentRef})
	}
	if len(match) == 0 {
		return nil, ErrLogNotFound
	}

	query, args, err := psqlbuilder.Select(logColumns...).
		From(logsTable).
		Where(squirrel.Eq{"service_package_id": packageID}).
		Where(match).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: LatestAppointmentLog - build select query: %w", ErrBuildQuery, err)
	}

	l, err := scanLog(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: LatestAppointmentLog - scan log: %w", ErrScanRow, err)
	}

	return l, nil
}

// ListLogs возвращает журнал пакета, новые сначала
func (r *Repository) ListLogs(ctx context.Context, packageID int64) ([]*domain.PackageLog, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(logColumns...).
		From(logsTable).
		Where(squirrel.Eq{"service_package_id": packageID}).
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListLogs - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListLogs - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.PackageLog, 0)
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListLogs - scan log: %w", ErrScanRow, err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListLogs - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}

// CreatePayment сохраняет платёж по пакету или по разовой записи
func (r *Repository) CreatePayment(ctx context.Context, p *domain.PackagePayment) (*domain.PackagePayment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(paymentsTable).
		Columns(
			"service_package_id",
			"appointment_id",
			"user_id",
			"staff_id",
			"method",
			"amount",
			"currency",
			"notes",
		).
		Values(
			p.ServicePackageID,
			p.AppointmentID,
			p.UserID,
			p.StaffID,
			string(p.Method),
			p.Amount,
			p.Currency,
			p.Notes,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CreatePayment - build insert query: %w", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: CreatePayment - execute insert: %w", ErrExecQuery, err)
	}

	return p, nil
}

// SumActivePayments возвращает сумму неаннулированных платежей по пакету
func (r *Repository) SumActivePayments(ctx context.Context, packageID int64) (decimal.Decimal, error) {
	return r.sumActive(ctx, "SumActivePayments", "service_package_id", packageID)
}

// SumActivePaymentsForAppointment сумма неаннулированных платежей разовой записи
func (r *Repository) SumActivePaymentsForAppointment(ctx context.Context, appointmentID int64) (decimal.Decimal, error) {
	return r.sumActive(ctx, "SumActivePaymentsForAppointment", "appointment_id", appointmentID)
}

func (r *Repository) sumActive(ctx context.Context, op, column string, id int64) (decimal.Decimal, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COALESCE(SUM(amount), 0)").
		From(paymentsTable).
		Where(squirrel.Eq{column: id, "voided_at": nil}).
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s - build select query: %w", ErrBuildQuery, op, err)
	}

	var sum decimal.Decimal
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s - execute query: %w", ErrExecQuery, op, err)
	}

	return sum, nil
}

// ListPayments возвращает все платежи пакета, включая аннулированные
func (r *Repository) ListPayments(ctx context.Context, packageID int64) ([]*domain.PackagePayment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(paymentColumns...).
		From(paymentsTable).
		Where(squirrel.Eq{"service_package_id": packageID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListPayments - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListPayments - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.PackagePayment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListPayments - scan payment: %w", ErrScanRow, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListPayments - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}

// GetPayment получает платёж по ID
func (r *Repository) GetPayment(ctx context.Context, id int64) (*domain.PackagePayment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(paymentColumns...).
		From(paymentsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetPayment - build select query: %w", ErrBuildQuery, err)
	}

	p, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetPayment - scan payment: %w", ErrScanRow, err)
	}

	return p, nil
}

// VoidPayment аннулирует платёж; повторное аннулирование возвращает ErrPaymentNotFound
func (r *Repository) VoidPayment(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(paymentsTable).
		Set("voided_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "voided_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: VoidPayment - build update query: %w", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: VoidPayment - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: VoidPayment - get rows affected: %w", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPackage собирает PackageBalance из пар nullable-колонок. Строка с обеими
// или ни одной заполненной парой возвращает *domain.InvariantViolationError.
func scanPackage(row rowScanner) (*domain.ServicePackage, error) {
	var p domain.ServicePackage
	var status string
	var totalSessions, remainingSessions, totalMinutes, remainingMinutes *int

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ServiceID,
		&p.ServiceName,
		&totalSessions,
		&remainingSessions,
		&totalMinutes,
		&remainingMinutes,
		&p.PriceTotal,
		&p.Currency,
		&status,
		&p.StartsOn,
		&p.ExpiresOn,
		&p.Notes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan package: %w", ErrScanRow, err)
	}

	balance, err := domain.BalanceFromColumns(p.ID, totalSessions, remainingSessions, totalMinutes, remainingMinutes)
	if err != nil {
		return nil, err
	}
	p.Balance = balance
	p.Status = domain.PackageStatus(status)

	return &p, nil
}

func scanLog(row rowScanner) (*domain.PackageLog, error) {
	var l domain.PackageLog
	err := row.Scan(
		&l.ID,
		&l.ServicePackageID,
		&l.StaffID,
		&l.AppointmentID,
		&l.AppointmentRef,
		&l.UsedSessions,
		&l.UsedMinutes,
		&l.UsedAt,
		&l.Note,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanPayment(row rowScanner) (*domain.PackagePayment, error) {
	var p domain.PackagePayment
	var method string
	err := row.Scan(
		&p.ID,
		&p.ServicePackageID,
		&p.AppointmentID,
		&p.UserID,
		&p.StaffID,
		&method,
		&p.Amount,
		&p.Currency,
		&p.Notes,
		&p.VoidedAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Method = domain.PaymentMethod(method)
	return &p, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateFormat)
	return &s
}
