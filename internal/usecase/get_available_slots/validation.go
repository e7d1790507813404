package get_available_slots

import (
	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ServiceID <= 0 {
		return domain.NewValidationError("service_id", "must be positive")
	}

	if req.Date.IsZero() {
		return domain.NewValidationError("date", "is required")
	}

	if req.StaffID != nil && *req.StaffID <= 0 {
		return domain.NewValidationError("staff_id", "must be positive")
	}

	// 0 означает шаг по умолчанию
	if req.StepMinutes != 0 && !domain.IsAllowedStep(req.StepMinutes) {
		return domain.NewValidationError("step", "must be one of 5, 10, 15, 20, 30, 60")
	}

	return nil
}
