package conflicts

import "errors"

var (
	// ErrInternal возвращается при ошибках чтения записей или взятия блокировок
	ErrInternal = errors.New("conflicts: internal error")
)
