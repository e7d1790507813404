package appointment_transitions

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("appointment_transitions: internal error")
)
