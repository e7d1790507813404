package create_appointment

import (
	"fmt"
	"unicode/utf8"

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

	if req.StartTime.IsZero() {
		return domain.NewValidationError("start_time", "is required")
	}
	if err := req.StartTime.Validate(); err != nil {
		return domain.NewValidationError("start_time", err.Error())
	}

	if req.StaffID != nil && *req.StaffID <= 0 {
		return domain.NewValidationError("staff_id", "must be positive")
	}
	if req.UserID != nil && *req.UserID <= 0 {
		return domain.NewValidationError("user_id", "must be positive")
	}

	if req.Notes != nil && utf8.RuneCountInString(*req.Notes) > domain.MaxNotesLength {
		return domain.NewValidationError("notes", fmt.Sprintf("must be at most %d characters", domain.MaxNotesLength))
	}
	for field, value := range map[string]*string{
		"customer_name":  req.CustomerName,
		"customer_phone": req.CustomerPhone,
		"customer_email": req.CustomerEmail,
	} {
		if value != nil && utf8.RuneCountInString(*value) > domain.MaxNoteLength {
			return domain.NewValidationError(field, fmt.Sprintf("must be at most %d characters", domain.MaxNoteLength))
		}
	}

	return nil
}
