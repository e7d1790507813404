package package_payments

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
)

type PackageLedger interface {
	RecordPayment(ctx context.Context, req *packages.PaymentRequest) (*domain.PackagePayment, error)
	VoidPayment(ctx context.Context, packageID, paymentID int64) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
