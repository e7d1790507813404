package use_package

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/internal/api/handlers"
	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
)

type fakeLedger struct {
	got *packages.DeductRequest
	pkg *domain.ServicePackage
	err error
}

func (f *fakeLedger) UseManually(_ context.Context, req *packages.DeductRequest) (*domain.ServicePackage, error) {
	f.got = req
	return f.pkg, f.err
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func serve(h *Handler, packageID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/packages/"+packageID+"/use", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"packageId": packageID})
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle_Success(t *testing.T) {
	ledger := &fakeLedger{pkg: &domain.ServicePackage{
		ID:         7,
		UserID:     42,
		ServiceID:  2,
		Balance:    domain.SessionsBalance(6, 4),
		PriceTotal: decimal.NewFromInt(600),
		Currency:   "EUR",
		Status:     domain.PackageActive,
	}}
	h := NewHandler(ledger, nopLogger{})

	rec := serve(h, "7", `{"amount":2,"staffId":10,"note":"walk-in"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ledger.got)
	assert.Equal(t, int64(7), ledger.got.PackageID)
	assert.Equal(t, 2, ledger.got.Amount)
	assert.Equal(t, int64(10), *ledger.got.StaffID)

	var body handlers.PackageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.ID)
}

func TestHandle_Errors(t *testing.T) {
	cases := []struct {
		name      string
		packageID string
		body      string
		err       error
		status    int
		called    bool
	}{
		{"bad path", "abc", `{"amount":1}`, nil, http.StatusBadRequest, false},
		{"zero amount", "7", `{"amount":0}`, nil, http.StatusBadRequest, false},
		{"malformed body", "7", `{`, nil, http.StatusBadRequest, false},
		{"not found", "7", `{"amount":1}`, domain.NewNotFoundError("service_package", 7), http.StatusNotFound, true},
		{
			"insufficient", "7", `{"amount":5}`,
			&domain.InsufficientBalanceError{PackageID: 7, Unit: domain.UnitSessions, Requested: decimal.NewFromInt(5), Remaining: decimal.NewFromInt(1)},
			http.StatusUnprocessableEntity, true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := &fakeLedger{err: tc.err}
			h := NewHandler(ledger, nopLogger{})

			rec := serve(h, tc.packageID, tc.body)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.called, ledger.got != nil)
		})
	}
}
