package handlers

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

const (
	msgValidation          = "некорректные данные запроса"
	msgNotFound            = "объект не найден"
	msgConflict            = "выбранное время недоступно"
	msgInvalidTransition   = "недопустимая смена статуса"
	msgInsufficientBalance = "недостаточный остаток на пакете"
)

// StatusFor HTTP статус для ошибки слоя use case
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RespondDomainError отправляет ответ по типу доменной ошибки и возвращает выбранный статус.
// Внутренние ошибки и нарушения инвариантов отдаются как 500 без подробностей.
func RespondDomainError(w http.ResponseWriter, err error) int {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		transition *domain.InvalidTransitionError
		balance    *domain.InsufficientBalanceError
	)

	status := StatusFor(err)
	switch {
	case errors.As(err, &validation):
		respondErrorDetails(w, status, msgValidation, map[string]interface{}{
			"field":  validation.Field,
			"reason": validation.Reason,
		})
	case errors.As(err, &notFound):
		respondErrorDetails(w, status, msgNotFound, map[string]interface{}{
			"entity": notFound.Entity,
			"key":    notFound.Key,
		})
	case errors.As(err, &conflict):
		details := map[string]interface{}{"axis": conflict.Axis}
		if conflict.ConflictingAppointmentID != 0 {
			details["conflictingAppointmentId"] = conflict.ConflictingAppointmentID
		}
		respondErrorDetails(w, status, msgConflict, details)
	case errors.As(err, &transition):
		respondErrorDetails(w, status, msgInvalidTransition, map[string]interface{}{
			"from": transition.From,
			"to":   transition.To,
		})
	case errors.As(err, &balance):
		respondErrorDetails(w, status, msgInsufficientBalance, map[string]interface{}{
			"packageId": balance.PackageID,
			"unit":      balance.Unit,
			"requested": balance.Requested.String(),
			"remaining": balance.Remaining.String(),
		})
	default:
		status = http.StatusInternalServerError
		RespondInternalError(w)
	}
	return status
}
