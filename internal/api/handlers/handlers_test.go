package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.NewValidationError("startTime", "bad"), http.StatusBadRequest},
		{"not found", domain.NewNotFoundError("appointment", 7), http.StatusNotFound},
		{"conflict", &domain.ConflictError{Axis: domain.AxisStaff, ConflictingAppointmentID: 3}, http.StatusConflict},
		{"transition", &domain.InvalidTransitionError{From: domain.StatusCompleted, To: domain.StatusConfirmed}, http.StatusConflict},
		{"balance", &domain.InsufficientBalanceError{PackageID: 1, Unit: domain.UnitSessions}, http.StatusUnprocessableEntity},
		{"wrapped", fmt.Errorf("outer: %w", domain.NewNotFoundError("package", 1)), http.StatusNotFound},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, StatusFor(tc.err))
		})
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondDomainError_Details(t *testing.T) {
	t.Run("conflict", func(t *testing.T) {
		rec := httptest.NewRecorder()
		status := RespondDomainError(rec, &domain.ConflictError{Axis: domain.AxisService, ConflictingAppointmentID: 9})

		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "service", body.Details["axis"])
		assert.Equal(t, float64(9), body.Details["conflictingAppointmentId"])
	})

	t.Run("concurrent conflict has no appointment", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RespondDomainError(rec, domain.NewConcurrencyConflict())

		body := decodeError(t, rec)
		assert.Equal(t, "concurrent", body.Details["axis"])
		assert.NotContains(t, body.Details, "conflictingAppointmentId")
	})

	t.Run("insufficient balance", func(t *testing.T) {
		rec := httptest.NewRecorder()
		status := RespondDomainError(rec, &domain.InsufficientBalanceError{
			PackageID: 5,
			Unit:      domain.UnitMinutes,
			Requested: decimal.NewFromInt(60),
			Remaining: decimal.NewFromInt(45),
		})

		assert.Equal(t, http.StatusUnprocessableEntity, status)
		body := decodeError(t, rec)
		assert.Equal(t, "minutes", body.Details["unit"])
		assert.Equal(t, "60", body.Details["requested"])
		assert.Equal(t, "45", body.Details["remaining"])
	})

	t.Run("internal error hides details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		status := RespondDomainError(rec, fmt.Errorf("%w: boom", domain.ErrInvariantViolation))

		assert.Equal(t, http.StatusInternalServerError, status)
		body := decodeError(t, rec)
		assert.Nil(t, body.Details)
		assert.NotContains(t, rec.Body.String(), "boom")
	})
}

type sampleRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed cancelled"`
	Count  int    `json:"count" validate:"omitempty,gt=0"`
}

func TestDecodeAndValidate(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr error
		field   string
	}{
		{"valid", `{"status":"confirmed","count":2}`, nil, ""},
		{"malformed", `{"status":`, ErrInvalidBody, ""},
		{"unknown field", `{"status":"confirmed","extra":1}`, ErrInvalidBody, ""},
		{"missing status", `{"count":1}`, domain.ErrValidation, "status"},
		{"bad enum", `{"status":"done"}`, domain.ErrValidation, "status"},
		{"bad count", `{"status":"cancelled","count":-1}`, domain.ErrValidation, "count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))

			var dst sampleRequest
			err := DecodeAndValidate(req, &dst)

			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
			if tc.field != "" {
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tc.field, verr.Field)
			}
		})
	}
}

func TestRespondInvalidRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondInvalidRequest(rec, fmt.Errorf("%w: eof", ErrInvalidBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, decodeError(t, rec).Details)

	rec = httptest.NewRecorder()
	RespondInvalidRequest(rec, domain.NewValidationError("status", "is required"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status", decodeError(t, rec).Details["field"])
}

func TestPathInt64(t *testing.T) {
	cases := []struct {
		raw string
		id  int64
		ok  bool
	}{
		{"15", 15, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"appointmentId": tc.raw})

			id, err := PathInt64(req, "appointmentId")

			if !tc.ok {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.id, id)
		})
	}
}

func TestQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?staffId=10&limit=20&bad=x", nil)

	staffID, err := QueryInt64(req, "staffId")
	require.NoError(t, err)
	require.NotNil(t, staffID)
	assert.Equal(t, int64(10), *staffID)

	missing, err := QueryInt64(req, "serviceId")
	require.NoError(t, err)
	assert.Nil(t, missing)

	limit, err := QueryInt(req, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	offset, err := QueryInt(req, "offset", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)

	_, err = QueryInt(req, "bad", 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseOptionalDate(t *testing.T) {
	d, err := ParseOptionalDate("startsOn", nil)
	require.NoError(t, err)
	assert.Nil(t, d)

	raw := "2025-03-10"
	d, err = ParseOptionalDate("startsOn", &raw)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, raw, d.Format(domain.DateFormat))

	bad := "10.03.2025"
	_, err = ParseOptionalDate("startsOn", &bad)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "startsOn", verr.Field)
}
