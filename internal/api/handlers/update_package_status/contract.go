package update_package_status

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

type PackageLedger interface {
	SetStatus(ctx context.Context, packageID int64, status domain.PackageStatus) (*domain.ServicePackage, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
