package reschedule_appointment

import "errors"

var (
	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("reschedule_appointment: internal error")
)
