package list_appointments

import (
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/appointments"
)

// ListResponse HTTP response model
type ListResponse struct {
	Appointments []*handlers.AppointmentResponse `json:"appointments"`
	Limit        int                             `json:"limit"`
	Offset       int                             `json:"offset"`
}

// ToServiceRequest собирает запрос из query: userId, staffId, date, status, upcoming, limit, offset
func ToServiceRequest(r *http.Request) (*appointments.ListRequest, error) {
	q := r.URL.Query()
	req := &appointments.ListRequest{}

	var err error
	if req.UserID, err = handlers.QueryInt64(r, "userId"); err != nil {
		return nil, err
	}
	if req.StaffID, err = handlers.QueryInt64(r, "staffId"); err != nil {
		return nil, err
	}
	if raw := q.Get("date"); raw != "" {
		date, err := handlers.ParseDate("date", raw)
		if err != nil {
			return nil, err
		}
		req.Date = &date
	}
	if raw := q.Get("status"); raw != "" {
		req.Status = &raw
	}
	if raw := q.Get("upcoming"); raw != "" {
		upcoming, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, domain.NewValidationError("upcoming", "must be true or false")
		}
		req.Upcoming = &upcoming
	}

	if req.Limit, err = handlers.QueryInt(r, "limit", domain.DefaultAppointmentsPerPage); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		return nil, domain.NewValidationError("limit", "must be positive")
	}
	if req.Offset, err = handlers.QueryInt(r, "offset", 0); err != nil {
		return nil, err
	}
	return req, nil
}

// FromAppointments конвертирует записи в HTTP response
func FromAppointments(req *appointments.ListRequest, list []*domain.Appointment) *ListResponse {
	items := make([]*handlers.AppointmentResponse, len(list))
	for i, a := range list {
		items[i] = handlers.NewAppointmentResponse(a)
	}
	return &ListResponse{
		Appointments: items,
		Limit:        req.Limit,
		Offset:       req.Offset,
	}
}
