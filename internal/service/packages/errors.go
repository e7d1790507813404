package packages

import "errors"

var (
	// ErrInternal внутренняя ошибка сервиса пакетов
	ErrInternal = errors.New("packages: internal error")
)
