package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
)

var (
	ErrInvalidBody = errors.New("handlers: invalid request body")
	ErrInvalidPath = errors.New("handlers: invalid path parameter")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// В ошибках используем имена полей из json-тегов
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON декодирует тело запроса в dst, неизвестные поля запрещены
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// DecodeAndValidate декодирует тело и проверяет validate-теги.
// Ошибка декодирования оборачивает ErrInvalidBody, ошибка проверки - *domain.ValidationError.
func DecodeAndValidate(r *http.Request, dst interface{}) error {
	if err := DecodeJSON(r, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	return Validate(dst)
}

// Validate проверяет структуру по validate-тегам
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return domain.NewValidationError(fe.Field(), describeTag(fe))
	}
	return domain.NewValidationError("", err.Error())
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt", "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "email":
		return "must be a valid email"
	default:
		return "failed on " + fe.Tag()
	}
}

// RespondInvalidRequest отвечает 400 на ошибку DecodeAndValidate
func RespondInvalidRequest(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrValidation) {
		RespondDomainError(w, err)
		return
	}
	RespondBadRequest(w, msgInvalidRequestBody)
}

// PathInt64 положительный числовой параметр пути
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidPath, name, raw)
	}
	return id, nil
}

// QueryInt64 необязательный числовой query параметр
func QueryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.NewValidationError(name, "must be an integer")
	}
	return &v, nil
}

// QueryInt необязательный целочисленный query параметр, def если не задан
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return v, nil
}

// ParseDate разбирает дату YYYY-MM-DD в UTC
func ParseDate(field, raw string) (time.Time, error) {
	d, err := time.Parse(domain.DateFormat, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "expected YYYY-MM-DD")
	}
	return d, nil
}

// ParseOptionalDate nil для пустой строки
func ParseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := ParseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
