package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	ServiceID   int64     // ID услуги
	Date        time.Time // Дата для получения слотов (без времени)
	StaffID     *int64    // Только слоты конкретного сотрудника
	StepMinutes int       // Шаг сетки, 0 - шаг из конфигурации
}

// Response модель ответа со списком доступных слотов
type Response struct {
	Date            time.Time
	ServiceID       int64
	StaffID         *int64
	DurationMinutes int
	StepMinutes     int
	Slots           []domain.Slot
}
