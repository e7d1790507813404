package appointment_transitions

import "github.com/m04kA/SMC-ClinicService/internal/domain"

// Request модель запроса на смену статуса записи
type Request struct {
	AppointmentID int64
	Status        domain.AppointmentStatus // целевой статус, используется только в Execute
	ActorID       *int64                   // кто меняет статус
	StaffID       *int64                   // сотрудник для журнала пакета, по умолчанию назначенный на запись
}
