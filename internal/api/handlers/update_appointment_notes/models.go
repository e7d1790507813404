package update_appointment_notes

import (
	"encoding/json"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// optionalString различает отсутствующее поле, null и значение
type optionalString struct {
	set   bool
	value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.set = true
	if string(data) == "null" {
		o.value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.value = &s
	return nil
}

func (o optionalString) toDomain() domain.Optional[string] {
	if !o.set {
		return domain.Optional[string]{}
	}
	if o.value == nil {
		return domain.Null[string]()
	}
	return domain.Some(*o.value)
}

// UpdateNotesRequest HTTP request model. Отсутствующее поле не меняется, null очищает его.
type UpdateNotesRequest struct {
	Notes         optionalString `json:"notes"`
	AdminNotes    optionalString `json:"adminNotes"`
	CustomerName  optionalString `json:"customerName"`
	CustomerPhone optionalString `json:"customerPhone"`
	CustomerEmail optionalString `json:"customerEmail"`
}

// ToUpdate конвертирует HTTP запрос в команду обновления
func (r *UpdateNotesRequest) ToUpdate() domain.AppointmentUpdate {
	return domain.AppointmentUpdate{
		Notes:         r.Notes.toDomain(),
		AdminNotes:    r.AdminNotes.toDomain(),
		CustomerName:  r.CustomerName.toDomain(),
		CustomerPhone: r.CustomerPhone.toDomain(),
		CustomerEmail: r.CustomerEmail.toDomain(),
	}
}
