package get_user_packages

import (
	"context"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

type PackageLedger interface {
	ListForUser(ctx context.Context, userID int64, status *string) ([]*domain.PackageSummary, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
