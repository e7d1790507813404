package record_appointment_payment

import (
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/appointments"
)

// RecordPaymentRequest HTTP request model
type RecordPaymentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Method   string          `json:"method" validate:"required,oneof=cash card bank other"`
	Currency string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	StaffID  *int64          `json:"staffId,omitempty" validate:"omitempty,gt=0"`
	Notes    *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// PaymentResponse платёж и состояние оплаты записи
type PaymentResponse struct {
	Payment        *handlers.PaymentResponse `json:"payment"`
	AmountPaid     string                    `json:"amountPaid"`
	RemainingToPay string                    `json:"remainingToPay"`
}

// FromResult конвертирует результат сервиса в HTTP response
func FromResult(result *appointments.PaymentResult) *PaymentResponse {
	return &PaymentResponse{
		Payment:        handlers.NewPaymentResponse(result.Payment),
		AmountPaid:     result.AmountPaid.StringFixed(2),
		RemainingToPay: result.RemainingToPay.StringFixed(2),
	}
}

// ToServiceRequest конвертирует HTTP запрос в модель сервиса
func (r *RecordPaymentRequest) ToServiceRequest(appointmentID int64, actorID *int64) (*appointments.PaymentRequest, error) {
	method, err := domain.ParsePaymentMethod(r.Method)
	if err != nil {
		return nil, err
	}
	return &appointments.PaymentRequest{
		AppointmentID: appointmentID,
		Amount:        r.Amount,
		Method:        method,
		Currency:      r.Currency,
		UserID:        actorID,
		StaffID:       r.StaffID,
		Notes:         r.Notes,
	}, nil
}
