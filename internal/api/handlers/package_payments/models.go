package package_payments

import (
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
)

// RecordPaymentRequest HTTP request model. Валюта платежа берётся из пакета.
type RecordPaymentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Method  string          `json:"method" validate:"required,oneof=cash card bank other"`
	StaffID *int64          `json:"staffId,omitempty" validate:"omitempty,gt=0"`
	Notes   *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ToLedgerRequest конвертирует HTTP запрос в модель сервиса пакетов
func (r *RecordPaymentRequest) ToLedgerRequest(packageID int64, actorID *int64) (*packages.PaymentRequest, error) {
	method, err := domain.ParsePaymentMethod(r.Method)
	if err != nil {
		return nil, err
	}
	return &packages.PaymentRequest{
		PackageID: packageID,
		Amount:    r.Amount,
		Method:    method,
		UserID:    actorID,
		StaffID:   r.StaffID,
		Notes:     r.Notes,
	}, nil
}
