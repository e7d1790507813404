package use_package

import "github.com/m04kA/SMC-ClinicService/internal/service/packages"

// UsePackageRequest HTTP request model. Amount в единицах пакета: сессии или минуты.
type UsePackageRequest struct {
	Amount  int     `json:"amount" validate:"required,gt=0"`
	StaffID *int64  `json:"staffId,omitempty" validate:"omitempty,gt=0"`
	Note    *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// ToLedgerRequest конвертирует HTTP запрос в модель сервиса пакетов
func (r *UsePackageRequest) ToLedgerRequest(packageID int64) *packages.DeductRequest {
	return &packages.DeductRequest{
		PackageID: packageID,
		Amount:    r.Amount,
		StaffID:   r.StaffID,
		Note:      r.Note,
	}
}
