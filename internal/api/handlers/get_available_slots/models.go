package get_available_slots

import (
	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
	getAvailableSlots "github.com/m04kA/SMC-ClinicService/internal/usecase/get_available_slots"
)

// AvailableSlotsResponse HTTP response model
type AvailableSlotsResponse struct {
	Date            string          `json:"date"`
	ServiceID       int64           `json:"serviceId"`
	StaffID         *int64          `json:"staffId,omitempty"`
	DurationMinutes int             `json:"durationMinutes"`
	StepMinutes     int             `json:"stepMinutes"`
	Slots           []AvailableSlot `json:"slots"`
}

// AvailableSlot модель временного слота
type AvailableSlot struct {
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"durationMinutes"`
	FreeStaff       int    `json:"freeStaff"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response) *AvailableSlotsResponse {
	slots := make([]AvailableSlot, len(resp.Slots))
	for i, slot := range resp.Slots {
		slots[i] = AvailableSlot{
			StartTime:       slot.StartTime.String(),
			EndTime:         slot.EndTime.String(),
			DurationMinutes: slot.DurationMinutes,
			FreeStaff:       slot.FreeStaff,
		}
	}

	return &AvailableSlotsResponse{
		Date:            resp.Date.Format(domain.DateFormat),
		ServiceID:       resp.ServiceID,
		StaffID:         resp.StaffID,
		DurationMinutes: resp.DurationMinutes,
		StepMinutes:     resp.StepMinutes,
		Slots:           slots,
	}
}

// ToUseCaseRequest создает запрос use case из параметров пути и query
func ToUseCaseRequest(serviceID int64, dateStr string, staffID *int64, step int) (*getAvailableSlots.Request, error) {
	date, err := handlers.ParseDate("date", dateStr)
	if err != nil {
		return nil, err
	}

	return &getAvailableSlots.Request{
		ServiceID:   serviceID,
		Date:        date,
		StaffID:     staffID,
		StepMinutes: step,
	}, nil
}
