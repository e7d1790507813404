package get_package

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
)

type PackageLedger interface {
	Summary(ctx context.Context, packageID int64) (*domain.PackageSummary, error)
	History(ctx context.Context, packageID int64) (*packages.History, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
