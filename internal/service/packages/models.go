package packages

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// CreatePackageRequest параметры нового пакета. Тип баланса берётся из шаблона услуги.
type CreatePackageRequest struct {
	UserID     int64
	ServiceID  int64
	PriceTotal decimal.Decimal
	Currency   string
	StartsOn   *time.Time
	ExpiresOn  *time.Time
	Notes      *string
}

// DeductRequest списание с пакета. AppointmentID/AppointmentRef пусты при ручном использовании.
type DeductRequest struct {
	PackageID      int64
	Amount         int
	StaffID        *int64
	Note           *string
	AppointmentID  *int64
	AppointmentRef *string
}

// RestoreRequest возврат списания по записи на приём
type RestoreRequest struct {
	PackageID      int64
	AppointmentID  *int64
	AppointmentRef *string
	StaffID        *int64
	Note           *string
}

// RestoreResult Restored=false означает, что возвращать было нечего
type RestoreResult struct {
	Package  *domain.ServicePackage
	Restored bool
	Amount   int
}

// PaymentRequest платёж по пакету
type PaymentRequest struct {
	PackageID int64
	Amount    decimal.Decimal
	Method    domain.PaymentMethod
	UserID    *int64
	StaffID   *int64
	Notes     *string
}

// History журнал списаний и платежи пакета
type History struct {
	Logs     []*domain.PackageLog
	Payments []*domain.PackagePayment
}
