package create_appointment

import (
	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
	createAppointment "github.com/m04kA/SMC-ClinicService/internal/usecase/create_appointment"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// CreateAppointmentRequest HTTP request model
type CreateAppointmentRequest struct {
	ServiceID     int64   `json:"serviceId" validate:"required,gt=0"`
	Date          string  `json:"date" validate:"required"`      // "2025-10-15"
	StartTime     string  `json:"startTime" validate:"required"` // "10:00"
	StaffID       *int64  `json:"staffId,omitempty" validate:"omitempty,gt=0"`
	UserID        *int64  `json:"userId,omitempty" validate:"omitempty,gt=0"`
	CustomerName  *string `json:"customerName,omitempty" validate:"omitempty,max=255"`
	CustomerPhone *string `json:"customerPhone,omitempty" validate:"omitempty,max=32"`
	CustomerEmail *string `json:"customerEmail,omitempty" validate:"omitempty,email"`
	Notes         *string `json:"notes,omitempty"`
}

// CreateAppointmentResponse HTTP response model
type CreateAppointmentResponse struct {
	Appointment    *handlers.AppointmentResponse `json:"appointment"`
	Package        *handlers.PackageResponse     `json:"package,omitempty"`
	PackageCreated bool                          `json:"packageCreated"`
	Idempotent     bool                          `json:"idempotent"`
	Events         []handlers.EventResponse      `json:"events"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateAppointmentRequest) ToUseCaseRequest(actorID *int64, idempotencyKey string) (*createAppointment.Request, error) {
	date, err := handlers.ParseDate("date", r.Date)
	if err != nil {
		return nil, err
	}

	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, domain.NewValidationError("startTime", "expected HH:MM")
	}

	// Без явного клиента запись оформляется на автора запроса
	userID := r.UserID
	if userID == nil {
		userID = actorID
	}

	return &createAppointment.Request{
		ServiceID:      r.ServiceID,
		Date:           date,
		StartTime:      startTime,
		StaffID:        r.StaffID,
		UserID:         userID,
		ActorID:        actorID,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		CustomerEmail:  r.CustomerEmail,
		Notes:          r.Notes,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createAppointment.Response) *CreateAppointmentResponse {
	result := &CreateAppointmentResponse{
		Appointment:    handlers.NewAppointmentResponse(resp.Appointment),
		PackageCreated: resp.PackageCreated,
		Idempotent:     resp.Idempotent,
		Events:         handlers.NewEventResponses(resp.Events),
	}
	if resp.Package != nil {
		result.Package = handlers.NewPackageResponse(resp.Package)
	}
	return result
}
