package revert_completion

import "github.com/m04kA/SMC-ClinicService/internal/domain"

// Request откат завершённой записи администратором
type Request struct {
	AppointmentID int64
	ActorID       *int64
	Note          *string
}

// Response Reverted=false, если запись уже была отменена
type Response struct {
	Appointment    *domain.Appointment
	Events         []domain.Event
	Reverted       bool
	RestoredAmount int
}
