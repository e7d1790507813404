package servicepackage

import "errors"

var (
	// ErrPackageNotFound возвращается, когда пакет не найден
	ErrPackageNotFound = errors.New("servicepackage.repository: package not found")

	// ErrPaymentNotFound возвращается, когда платёж не найден или уже аннулирован
	ErrPaymentNotFound = errors.New("servicepackage.repository: payment not found")

	// ErrLogNotFound возвращается, когда нет подходящей записи журнала пакета
	ErrLogNotFound = errors.New("servicepackage.repository: package log not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("servicepackage.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("servicepackage.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("servicepackage.repository: failed to scan row")
)
