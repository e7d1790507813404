package get_package

import (
	"time"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
)

// PackageDetailsResponse пакет с суммами, журналом списаний и платежами
type PackageDetailsResponse struct {
	Package        *handlers.PackageResponse   `json:"package"`
	AmountPaid     string                      `json:"amountPaid"`
	RemainingToPay string                      `json:"remainingToPay"`
	BalanceWarning bool                        `json:"balanceWarning"`
	Usage          []UsageResponse             `json:"usage"`
	Payments       []*handlers.PaymentResponse `json:"payments"`
}

// UsageResponse запись журнала списаний
type UsageResponse struct {
	ID             int64   `json:"id"`
	StaffID        *int64  `json:"staffId,omitempty"`
	AppointmentID  *int64  `json:"appointmentId,omitempty"`
	AppointmentRef *string `json:"appointmentRef,omitempty"`
	UsedSessions   *int    `json:"usedSessions,omitempty"`
	UsedMinutes    *int    `json:"usedMinutes,omitempty"`
	UsedAt         string  `json:"usedAt"`
	Note           *string `json:"note,omitempty"`
}

// FromSummary собирает ответ из сводки и истории пакета
func FromSummary(summary *domain.PackageSummary, history *packages.History) *PackageDetailsResponse {
	usage := make([]UsageResponse, len(history.Logs))
	for i, l := range history.Logs {
		usage[i] = UsageResponse{
			ID:             l.ID,
			StaffID:        l.StaffID,
			AppointmentID:  l.AppointmentID,
			AppointmentRef: l.AppointmentRef,
			UsedSessions:   l.UsedSessions,
			UsedMinutes:    l.UsedMinutes,
			UsedAt:         l.UsedAt.Format(time.RFC3339),
			Note:           l.Note,
		}
	}

	payments := make([]*handlers.PaymentResponse, len(history.Payments))
	for i, p := range history.Payments {
		payments[i] = handlers.NewPaymentResponse(p)
	}

	return &PackageDetailsResponse{
		Package:        handlers.NewPackageResponse(summary.Package),
		AmountPaid:     summary.AmountPaid.StringFixed(2),
		RemainingToPay: summary.RemainingToPay.StringFixed(2),
		BalanceWarning: summary.BalanceWarning,
		Usage:          usage,
		Payments:       payments,
	}
}
