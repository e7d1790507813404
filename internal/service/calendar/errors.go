package calendar

import "errors"

var (
	// ErrInternal возвращается при ошибках чтения расписания
	ErrInternal = errors.New("calendar: internal error")
)
