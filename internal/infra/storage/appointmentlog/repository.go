package appointmentlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ClinicService/pkg/psqlbuilder"
)

const table = "appointment_logs"

// Repository журнал действий с записями (только добавление)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория журнала
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Append добавляет запись в журнал
func (r *Repository) Append(ctx context.Context, entry *domain.AppointmentLog) (*domain.AppointmentLog, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	meta := entry.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("%w: Append: %w", ErrEncodeMeta, err)
	}

	query, args, err := psqlbuilder.Insert(table).
		Columns("appointment_id", "action", "meta", "user_id").
		Values(entry.AppointmentID, string(entry.Action), string(encoded), entry.UserID).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Append - build insert query: %w", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: Append - execute insert: %w", ErrExecQuery, err)
	}

	return entry, nil
}

// HasAction проверяет, есть ли в журнале записи action для записи на приём.
// Используется как ключ идемпотентности списания пакета.
func (r *Repository) HasAction(ctx context.Context, appointmentID int64, action domain.LogAction) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		From(table).
		Where(squirrel.Eq{"appointment_id": appointmentID, "action": string(action)}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: HasAction - build select query: %w", ErrBuildQuery, err)
	}

	var one int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: HasAction - execute query: %w", ErrExecQuery, err)
	}

	return true, nil
}

// List возвращает журнал записи, новые сначала
func (r *Repository) List(ctx context.Context, filter domain.AppointmentLogFilter) ([]*domain.AppointmentLog, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select("id", "appointment_id", "action", "meta", "user_id", "created_at").
		From(table).
		Where(squirrel.Eq{"appointment_id": filter.AppointmentID})

	if filter.Action != nil {
		builder = builder.Where(squirrel.Eq{"action": string(*filter.Action)})
	}
	if filter.Since != nil {
		builder = builder.Where(squirrel.GtOrEq{"created_at": *filter.Since})
	}
	if filter.Until != nil {
		builder = builder.Where(squirrel.LtOrEq{"created_at": *filter.Until})
	}

	limit := filter.Limit
	if limit <= 0 || limit > domain.MaxLogsPerPage {
		limit = domain.DefaultLogsPerPage
	}
	builder = builder.OrderBy("created_at DESC", "id DESC").
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

	result := make([]*domain.AppointmentLog, 0)
	for rows.Next() {
		var entry domain.AppointmentLog
		var action string
		var meta []byte
		if err := rows.Scan(&entry.ID, &entry.AppointmentID, &action, &meta, &entry.UserID, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: List - scan log: %w", ErrScanRow, err)
		}
		entry.Action = domain.LogAction(action)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, fmt.Errorf("%w: List - decode meta: %w", ErrScanRow, err)
			}
		}
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List - rows error: %w", ErrScanRow, err)
	}

	return result, nil
}
