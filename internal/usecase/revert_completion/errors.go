package revert_completion

import "errors"

var (
	// ErrInternal внутренняя ошибка
	ErrInternal = errors.New("revert_completion: internal error")
)
