package get_user_packages

import (
	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// PackageSummaryResponse пакет клиента с суммами оплаты
type PackageSummaryResponse struct {
	Package        *handlers.PackageResponse `json:"package"`
	AmountPaid     string                    `json:"amountPaid"`
	RemainingToPay string                    `json:"remainingToPay"`
	BalanceWarning bool                      `json:"balanceWarning"`
}

// FromSummaries конвертирует сводки пакетов в HTTP response
func FromSummaries(list []*domain.PackageSummary) []PackageSummaryResponse {
	result := make([]PackageSummaryResponse, len(list))
	for i, s := range list {
		result[i] = PackageSummaryResponse{
			Package:        handlers.NewPackageResponse(s.Package),
			AmountPaid:     s.AmountPaid.StringFixed(2),
			RemainingToPay: s.RemainingToPay.StringFixed(2),
			BalanceWarning: s.BalanceWarning,
		}
	}
	return result
}
