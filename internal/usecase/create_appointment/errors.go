package create_appointment

import "errors"

var (
	// ErrReferenceExhausted возвращается, когда не удалось подобрать уникальный код записи
	ErrReferenceExhausted = errors.New("create_appointment: could not generate a unique reference code")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_appointment: internal error")
)
