package get_appointment_logs

import (
	"net/http"
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// LogEntryResponse запись журнала действий
type LogEntryResponse struct {
	ID        int64                  `json:"id"`
	Action    string                 `json:"action"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	UserID    *int64                 `json:"userId,omitempty"`
	CreatedAt string                 `json:"createdAt"`
}

// LogsResponse HTTP response model
type LogsResponse struct {
	AppointmentID int64              `json:"appointmentId"`
	Logs          []LogEntryResponse `json:"logs"`
	Limit         int                `json:"limit"`
	Offset        int                `json:"offset"`
}

// ToFilter собирает фильтр из query: action, since, until (RFC3339), limit, offset
func ToFilter(appointmentID int64, r *http.Request) (domain.AppointmentLogFilter, error) {
	filter := domain.AppointmentLogFilter{AppointmentID: appointmentID}
	q := r.URL.Query()

	if raw := q.Get("action"); raw != "" {
		action := domain.LogAction(raw)
		filter.Action = &action
	}

	var err error
	if filter.Since, err = parseTime("since", q.Get("since")); err != nil {
		return filter, err
	}
	if filter.Until, err = parseTime("until", q.Get("until")); err != nil {
		return filter, err
	}

	if filter.Limit, err = handlers.QueryInt(r, "limit", defaultLimit); err != nil {
		return filter, err
	}
	if filter.Limit <= 0 || filter.Limit > maxLimit {
		return filter, domain.NewValidationError("limit", "must be between 1 and 200")
	}
	if filter.Offset, err = handlers.QueryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	if filter.Offset < 0 {
		return filter, domain.NewValidationError("offset", "must not be negative")
	}
	return filter, nil
}

func parseTime(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewValidationError(field, "expected RFC3339 timestamp")
	}
	return &t, nil
}

// FromLogs конвертирует журнал в HTTP response
func FromLogs(filter domain.AppointmentLogFilter, logs []*domain.AppointmentLog) *LogsResponse {
	entries := make([]LogEntryResponse, len(logs))
	for i, l := range logs {
		entries[i] = LogEntryResponse{
			ID:        l.ID,
			Action:    string(l.Action),
			Meta:      l.Meta,
			UserID:    l.UserID,
			CreatedAt: l.CreatedAt.Format(time.RFC3339),
		}
	}
	return &LogsResponse{
		AppointmentID: filter.AppointmentID,
		Logs:          entries,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
}
