package create_package

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
)

type PackageLedger interface {
	CreatePackage(ctx context.Context, req *packages.CreatePackageRequest) (*domain.ServicePackage, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
