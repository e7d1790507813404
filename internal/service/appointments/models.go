package appointments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// ListRequest выборка записей. Хотя бы один из UserID, StaffID, Date обязателен
type ListRequest struct {
	UserID   *int64
	StaffID  *int64
	Date     *time.Time
	Status   *string
	Upcoming *bool
	Limit    int
	Offset   int
}

// PaymentResult платёж и состояние оплаты записи после него.
// RemainingToPay отрицателен при переплате.
type PaymentResult struct {
	Payment        *domain.PackagePayment
	AmountPaid     decimal.Decimal
	RemainingToPay decimal.Decimal
}

// PaymentRequest оплата разовой записи без пакета
type PaymentRequest struct {
	AppointmentID int64
	Amount        decimal.Decimal
	Method        domain.PaymentMethod
	Currency      string
	UserID        *int64
	StaffID       *int64
	Notes         *string
}
