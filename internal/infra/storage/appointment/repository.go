package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicService/pkg/psqlbuilder"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

const table = "appointments"

var columns = []string{
	"id",
	"service_id",
	"staff_id",
	"user_id",
	"service_package_id",
	"date",
	"starts_at",
	"duration_minutes",
	"price",
	"status",
	"reference_code",
	"customer_name",
	"customer_phone",
	"customer_email",
	"notes",
	"admin_notes",
	"created_at",
	"updated_at",
	"deleted_at",
}

// Repository репозиторий для работы с записями на приём
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория записей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новую запись. duration_minutes и price сохраняются как снимок услуги
// и дальше не изменяются.
func (r *Repository) Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(table).
		Columns(
			"service_id",
			"staff_id",
			"user_id",
			"service_package_id",
			"date",
			"starts_at",
			"duration_minutes",
			"price",
			"status",
			"reference_code",
			"customer_name",
			"customer_phone",
			"customer_email",
			"notes",
			"admin_notes",
		).
		Values(
			a.ServiceID,
			a.StaffID,
			a.UserID,
			a.ServicePackageID,
			a.Date.Format(domain.DateFormat),
			a.StartTime,
			a.DurationMinutes,
			a.Price,
			string(a.Status),
			a.ReferenceCode,
			a.CustomerName,
			a.CustomerPhone,
			a.CustomerEmail,
			a.Notes,
			a.AdminNotes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %w", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&a.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return a, nil
}

// GetByID получает неудалённую запись по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id}, false)
}

// GetByIDForUpdate получает запись по ID; в транзакции строка блокируется (FOR UPDATE)
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.getOne(ctx, "GetByIDForUpdate", squirrel.Eq{"id": id}, dbmetrics.IsInTransaction(ctx))
}

// GetByReference получает неудалённую запись по коду бронирования
func (r *Repository) GetByReference(ctx context.Context, code string) (*domain.Appointment, error) {
	return r.getOne(ctx, "GetByReference", squirrel.Eq{"reference_code": code}, false)
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Eq, forUpdate bool) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(table).
		Where(where).
		Where(squirrel.Eq{"deleted_at": nil})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %w", ErrBuildQuery, op, err)
	}

	a, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan appointment: %w", ErrScanRow, op, err)
	}

	return a, nil
}

// ReferenceExists проверяет, занят ли код бронирования (включая удалённые записи:
// коды никогда не переиспользуются)
func (r *Repository) ReferenceExists(ctx context.Context, code string) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		From(table).
		Where(squirrel.Eq{"reference_code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: ReferenceExists - build select query: %w", ErrBuildQuery, err)
	}

	var one int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: ReferenceExists - execute query: %w", ErrExecQuery, err)
	}

	return true, nil
}

// ListBlockingForDay получает неудалённые записи в статусах pending/confirmed/completed
// на дату filter.Date, которые делят с кандидатом услугу ИЛИ сотрудника.
// Одним запросом покрываются обе оси проверки пересечений.
func (r *Repository) ListBlockingForDay(ctx context.Context, filter domain.DayAppointmentsFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	statuses := make([]string, len(domain.BlockingStatuses))
	for i, s := range domain.BlockingStatuses {
		statuses[i] = string(s)
	}

	builder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"date": filter.Date.Format(domain.DateFormat)}).
		Where(squirrel.Eq{"deleted_at": nil}).
		Where(squirrel.Eq{"status": statuses})

	// Оси: та же услуга ИЛИ тот же сотрудник
	axes := squirrel.Or{}
	if filter.ServiceID != nil {
		axes = append(axes, squirrel.Eq{"service_id": *filter.ServiceID})
	}
	if len(filter.StaffIDs) > 0 {
		axes = append(axes, squirrel.Eq{"staff_id": filter.StaffIDs})
	}
	if len(axes) > 0 {
		builder = builder.Where(axes)
	}

	if filter.ExcludeID != nil {
		builder = builder.Where(squirrel.NotEq{"id": *filter.ExcludeID})
	}

	builder = builder.OrderBy("starts_at ASC", "id ASC")

	// В транзакции дополнительно блокируем найденные строки
	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListBlockingForDay - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListBlockingForDay - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListBlockingForDay - scan appointment: %w", ErrScanRow, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListBlockingForDay - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}

// List получает неудалённые записи по фильтру, упорядоченные по дате и времени начала
func (r *Repository) List(ctx context.Context, filter domain.AppointmentListFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"deleted_at": nil})

	if filter.UserID != nil {
		builder = builder.Where(squirrel.Eq{"user_id": *filter.UserID})
	}
	if filter.StaffID != nil {
		builder = builder.Where(squirrel.Eq{"staff_id": *filter.StaffID})
	}
	if filter.Date != nil {
		builder = builder.Where(squirrel.Eq{"date": filter.Date.Format(domain.DateFormat)})
	}
	if filter.Status != nil {
		builder = builder.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.From != nil {
		builder = builder.Where(squirrel.GtOrEq{"date": filter.From.Format(domain.DateFormat)})
	}
	if filter.Before != nil {
		builder = builder.Where(squirrel.Lt{"date": filter.Before.Format(domain.DateFormat)})
	}

	direction := "ASC"
	if filter.Descending {
		direction = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > domain.MaxAppointmentsPerPage {
		limit = domain.DefaultAppointmentsPerPage
	}
	builder = builder.OrderBy("date "+direction, "starts_at "+direction, "id "+direction).
		Limit(uint64(limit)).
		Offset(uint64(max(filter.Offset, 0)))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: List - scan appointment: %w", ErrScanRow, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}

// LockResources берёт транзакционные advisory-блокировки на (сотрудник, день) для каждого из staffIDs
// в переданном порядке, затем на (услуга, день). Сотрудники всегда блокируются раньше услуги.
// FOR UPDATE не защищает от вставки новых строк, поэтому сериализация бронирований одного ресурса
// идёт через эти блокировки. Вне транзакции ничего не делает.
func (r *Repository) LockResources(ctx context.Context, date time.Time, staffIDs []int64, serviceID int64) error {
	if !dbmetrics.IsInTransaction(ctx) {
		return nil
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	day := date.Format(domain.DateFormat)
	keys := make([]int64, 0, len(staffIDs)+1)
	for _, staffID := range staffIDs {
		keys = append(keys, LockKey("staff", staffID, day))
	}
	keys = append(keys, LockKey("service", serviceID, day))

	for _, key := range keys {
		query, args, err := psqlbuilder.Select().
			Column(squirrel.Expr("pg_advisory_xact_lock(?)", key)).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: LockResources - build query: %w", ErrBuildQuery, err)
		}
		if _, err := executor.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: LockResources - key=%d: %w", ErrLock, key, err)
		}
	}

	return nil
}

// LockKey стабильный 64-битный ключ advisory-блокировки для ресурса на день
func LockKey(resource string, id int64, day string) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s:%d:%s", resource, id, day)
	return int64(h.Sum64())
}

// UpdateStatus обновляет статус записи
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) error {
	return r.update(ctx, "UpdateStatus", id, map[string]interface{}{"status": string(status)})
}

// UpdateSchedule переносит запись на другую дату/время
func (r *Repository) UpdateSchedule(ctx context.Context, id int64, date time.Time, start types.TimeString) error {
	return r.update(ctx, "UpdateSchedule", id, map[string]interface{}{
		"date":      date.Format(domain.DateFormat),
		"starts_at": start,
	})
}

// UpdateStaff назначает сотрудника
func (r *Repository) UpdateStaff(ctx context.Context, id int64, staffID *int64) error {
	return r.update(ctx, "UpdateStaff", id, map[string]interface{}{"staff_id": staffID})
}

// UpdatePackage привязывает или отвязывает пакет
func (r *Repository) UpdatePackage(ctx context.Context, id int64, packageID *int64) error {
	return r.update(ctx, "UpdatePackage", id, map[string]interface{}{"service_package_id": packageID})
}

// UpdateDetails применяет частичное обновление текстовых полей.
// Поля без флага Set не трогаются, Set с nil очищает значение.
func (r *Repository) UpdateDetails(ctx context.Context, id int64, upd domain.AppointmentUpdate) error {
	values := make(map[string]interface{})
	setOptional(values, "notes", upd.Notes)
	setOptional(values, "admin_notes", upd.AdminNotes)
	setOptional(values, "customer_name", upd.CustomerName)
	setOptional(values, "customer_phone", upd.CustomerPhone)
	setOptional(values, "customer_email", upd.CustomerEmail)

	if len(values) == 0 {
		return nil
	}
	return r.update(ctx, "UpdateDetails", id, values)
}

func setOptional(values map[string]interface{}, column string, field domain.Optional[string]) {
	if field.Set {
		values[column] = field.Value
	}
}

// SoftDelete помечает запись удалённой; строка остаётся для аудита
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	return r.update(ctx, "SoftDelete", id, map[string]interface{}{"deleted_at": squirrel.Expr("NOW()")})
}

func (r *Repository) update(ctx context.Context, op string, id int64, values map[string]interface{}) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	values["updated_at"] = squirrel.Expr("NOW()")

	query, args, err := psqlbuilder.Update(table).
		SetMap(values).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"deleted_at": nil}).
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
		return ErrAppointmentNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var a domain.Appointment
	var status string
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.ServiceID,
		&a.StaffID,
		&a.UserID,
		&a.ServicePackageID,
		&a.Date,
		&a.StartTime,
		&a.DurationMinutes,
		&a.Price,
		&status,
		&a.ReferenceCode,
		&a.CustomerName,
		&a.CustomerPhone,
		&a.CustomerEmail,
		&a.Notes,
		&a.AdminNotes,
		&createdAt,
		&updatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = domain.AppointmentStatus(status)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}
