package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicService/pkg/psqlbuilder"
)

// Repository чтение каталога: услуги, сотрудники, расписания и отгулы.
// Изменение каталога выполняется вне этого сервиса.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория каталога
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetService получает неудалённую услугу по ID
func (r *Repository) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"name",
		"duration_minutes",
		"price",
		"is_active",
		"is_bookable",
		"is_package",
		"total_sessions",
		"total_minutes",
	).
		From("services").
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetService - build select query: %w", ErrBuildQuery, err)
	}

	var s domain.Service
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&s.ID,
		&s.Name,
		&s.DurationMinutes,
		&s.Price,
		&s.IsActive,
		&s.IsBookable,
		&s.IsPackage,
		&s.TotalSessions,
		&s.TotalMinutes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetService - scan service: %w", ErrScanRow, err)
	}

	return &s, nil
}

// GetStaff получает сотрудника по ID
func (r *Repository) GetStaff(ctx context.Context, id int64) (*domain.Staff, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "name", "is_active").
		From("staff").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetStaff - build select query: %w", ErrBuildQuery, err)
	}

	var s domain.Staff
	err = executor.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.Name, &s.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetStaff - scan staff: %w", ErrScanRow, err)
	}

	return &s, nil
}

// ListCapableStaff возвращает активных сотрудников, которые выполняют услугу, в порядке ID.
// Этот порядок используется при автоматическом назначении сотрудника.
func (r *Repository) ListCapableStaff(ctx context.Context, serviceID int64) ([]domain.Staff, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("s.id", "s.name", "s.is_active").
		From("staff s").
		Join("service_staff ss ON ss.staff_id = s.id").
		Where(squirrel.Eq{"ss.service_id": serviceID, "s.is_active": true}).
		OrderBy("s.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListCapableStaff - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListCapableStaff - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]domain.Staff, 0)
	for rows.Next() {
		var s domain.Staff
		if err := rows.Scan(&s.ID, &s.Name, &s.IsActive); err != nil {
			return nil, fmt.Errorf("%w: ListCapableStaff - scan staff: %w", ErrScanRow, err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListCapableStaff - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}

// IsStaffCapable проверяет связь сотрудник-услуга
func (r *Repository) IsStaffCapable(ctx context.Context, staffID, serviceID int64) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		From("service_staff").
		Where(squirrel.Eq{"staff_id": staffID, "service_id": serviceID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: IsStaffCapable - build select query: %w", ErrBuildQuery, err)
	}

	var one int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: IsStaffCapable - execute query: %w", ErrExecQuery, err)
	}

	return true, nil
}

// ListWorkingWindows возвращает окна сотрудников на день недели (0 = воскресенье)
func (r *Repository) ListWorkingWindows(ctx context.Context, staffIDs []int64, weekday int) ([]domain.WorkingWindow, error) {
	if len(staffIDs) == 0 {
		return []domain.WorkingWindow{}, nil
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "staff_id", "weekday", "start_time", "end_time", "is_active").
		From("staff_schedules").
		Where(squirrel.Expr("staff_id = ANY(?)", pq.Array(staffIDs))).
		Where(squirrel.Eq{"weekday": weekday}).
		OrderBy("staff_id ASC", "start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListWorkingWindows - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListWorkingWindows - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]domain.WorkingWindow, 0)
	for rows.Next() {
		var w domain.WorkingWindow
		if err := rows.Scan(&w.ID, &w.StaffID, &w.Weekday, &w.StartTime, &w.EndTime, &w.IsActive); err != nil {
			return nil, fmt.Errorf("%w: ListWorkingWindows - scan window: %w", ErrScanRow, err)
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListWorkingWindows - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}

// ListTimeOff возвращает отгулы сотрудников на дату
func (r *Repository) ListTimeOff(ctx context.Context, staffIDs []int64, date time.Time) ([]domain.TimeOffException, error) {
	if len(staffIDs) == 0 {
		return []domain.TimeOffException{}, nil
	}
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "staff_id", "date", "start_time", "end_time", "reason").
		From("staff_time_off").
		Where(squirrel.Expr("staff_id = ANY(?)", pq.Array(staffIDs))).
		Where(squirrel.Eq{"date": date.Format(domain.DateFormat)}).
		OrderBy("staff_id ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListTimeOff - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListTimeOff - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]domain.TimeOffException, 0)
	for rows.Next() {
		var off domain.TimeOffException
		if err := rows.Scan(&off.ID, &off.StaffID, &off.Date, &off.StartTime, &off.EndTime, &off.Reason); err != nil {
			return nil, fmt.Errorf("%w: ListTimeOff - scan time off: %w", ErrScanRow, err)
		}
		result = append(result, off)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListTimeOff - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}
