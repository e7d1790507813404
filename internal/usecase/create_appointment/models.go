package create_appointment

import (
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// Request модель запроса на создание записи
type Request struct {
	ServiceID int64            // ID услуги
	Date      time.Time        // Дата записи (без времени)
	StartTime types.TimeString // Время начала, например "10:00"
	StaffID   *int64           // Выбранный сотрудник, nil - подбор автоматически
	UserID    *int64           // Клиент, nil для гостевой записи
	ActorID   *int64           // Кто создаёт запись (клиент или сотрудник)

	CustomerName  *string
	CustomerPhone *string
	CustomerEmail *string
	Notes         *string

	// IdempotencyKey повтор запроса с ключом возвращает уже созданную запись клиента на этот слот
	IdempotencyKey string
}

// Response модель ответа с созданной записью
type Response struct {
	Appointment    *domain.Appointment
	Package        *domain.ServicePackage // пакет сессий, к которому привязана запись
	PackageCreated bool
	Idempotent     bool // запись найдена по ключу идемпотентности, новая не создавалась
	Events         []domain.Event
}
