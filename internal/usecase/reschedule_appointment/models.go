package reschedule_appointment

import (
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// RescheduleRequest перенос записи на другую дату или время. Длительность остаётся прежней.
type RescheduleRequest struct {
	AppointmentID int64
	Date          time.Time
	StartTime     types.TimeString
	ActorID       *int64
}

// AssignStaffRequest назначение или смена сотрудника
type AssignStaffRequest struct {
	AppointmentID int64
	StaffID       int64
	ActorID       *int64
}

// Response запись после изменения
type Response struct {
	Appointment *domain.Appointment
}
