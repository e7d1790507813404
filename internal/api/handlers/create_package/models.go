package create_package

import (
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
)

// CreatePackageRequest HTTP request model
type CreatePackageRequest struct {
	UserID     int64           `json:"userId" validate:"required,gt=0"`
	ServiceID  int64           `json:"serviceId" validate:"required,gt=0"`
	PriceTotal decimal.Decimal `json:"priceTotal"`
	Currency   string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	StartsOn   *string         `json:"startsOn,omitempty"`  // "2025-10-01"
	ExpiresOn  *string         `json:"expiresOn,omitempty"` // "2026-10-01"
	Notes      *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// ToLedgerRequest конвертирует HTTP запрос в модель сервиса пакетов
func (r *CreatePackageRequest) ToLedgerRequest() (*packages.CreatePackageRequest, error) {
	startsOn, err := handlers.ParseOptionalDate("startsOn", r.StartsOn)
	if err != nil {
		return nil, err
	}
	expiresOn, err := handlers.ParseOptionalDate("expiresOn", r.ExpiresOn)
	if err != nil {
		return nil, err
	}

	return &packages.CreatePackageRequest{
		UserID:     r.UserID,
		ServiceID:  r.ServiceID,
		PriceTotal: r.PriceTotal,
		Currency:   r.Currency,
		StartsOn:   startsOn,
		ExpiresOn:  expiresOn,
		Notes:      r.Notes,
	}, nil
}
