package appointments

import "errors"

var (
	// ErrInternal внутренняя ошибка сервиса записей
	ErrInternal = errors.New("appointments: internal error")
)
