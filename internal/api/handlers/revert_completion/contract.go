package revert_completion

import (
	"context"

	revertCompletion "github.com/m04kA/SMC-ClinicService/internal/usecase/revert_completion"
)

type RevertCompletionUseCase interface {
	Execute(ctx context.Context, req *revertCompletion.Request) (*revertCompletion.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
