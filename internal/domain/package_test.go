package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
)

func sessionsPackage(total, remaining int) *ServicePackage {
	return &ServicePackage{ID: 1, Balance: SessionsBalance(total, remaining), Status: PackageActive}
}

func minutesPackage(total, remaining int) *ServicePackage {
	return &ServicePackage{ID: 2, Balance: MinutesBalance(total, remaining), Status: PackageActive}
}

func TestDeductSessions(t *testing.T) {
	pkg := sessionsPackage(6, 2)

	require.NoError(t, pkg.DeductSessions(1))
	assert.Equal(t, 1, pkg.Balance.Remaining())
	assert.Equal(t, PackageActive, pkg.Status)

	require.NoError(t, pkg.DeductSessions(1))
	assert.Equal(t, 0, pkg.Balance.Remaining())
	assert.Equal(t, PackageExhausted, pkg.Status)

	err := pkg.DeductSessions(1)
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, UnitSessions, insufficient.Unit)
	assert.True(t, insufficient.Remaining.IsZero())
	assert.Equal(t, 0, pkg.Balance.Remaining())
}

func TestDeductSessions_NeverGoesNegative(t *testing.T) {
	pkg := sessionsPackage(6, 2)

	err := pkg.DeductSessions(3)

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 2, pkg.Balance.Remaining())
}

func TestDeductSessions_Rejections(t *testing.T) {
	inactive := sessionsPackage(6, 6)
	inactive.Status = PackageCancelled
	assert.ErrorIs(t, inactive.DeductSessions(1), ErrValidation)
	assert.Equal(t, 6, inactive.Balance.Remaining())

	assert.ErrorIs(t, sessionsPackage(6, 6).DeductSessions(0), ErrValidation)
	assert.ErrorIs(t, minutesPackage(300, 300).DeductSessions(1), ErrValidation)
}

func TestDeductMinutes_MayGoNegative(t *testing.T) {
	pkg := minutesPackage(300, 30)

	require.NoError(t, pkg.DeductMinutes(45))

	assert.Equal(t, -15, pkg.Balance.Remaining())
	assert.True(t, pkg.HasNegativeBalance())
	assert.Equal(t, PackageActive, pkg.Status)

	assert.ErrorIs(t, pkg.DeductMinutes(-1), ErrValidation)
	assert.ErrorIs(t, sessionsPackage(6, 6).DeductMinutes(30), ErrValidation)
}

func TestRestore_ReactivatesPackage(t *testing.T) {
	pkg := sessionsPackage(6, 1)
	require.NoError(t, pkg.DeductSessions(1))
	require.Equal(t, PackageExhausted, pkg.Status)

	pkg.Restore(1)

	assert.Equal(t, 1, pkg.Balance.Remaining())
	assert.Equal(t, PackageActive, pkg.Status)
}

func TestCoversAppointment(t *testing.T) {
	assert.True(t, sessionsPackage(6, 1).CoversAppointment(60))
	assert.False(t, sessionsPackage(6, 0).CoversAppointment(60))
	assert.True(t, minutesPackage(300, 45).CoversAppointment(45))
	assert.False(t, minutesPackage(300, 44).CoversAppointment(45))
}

func TestIsValidOn(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	pkg := sessionsPackage(6, 6)
	assert.True(t, pkg.IsValidOn(day))

	pkg.StartsOn = ptr.Ptr(day)
	pkg.ExpiresOn = ptr.Ptr(day)
	assert.True(t, pkg.IsValidOn(day.Add(15*time.Hour)))
	assert.False(t, pkg.IsValidOn(day.AddDate(0, 0, -1)))
	assert.False(t, pkg.IsValidOn(day.AddDate(0, 0, 1)))
}

func TestBalanceFromColumns(t *testing.T) {
	balance, err := BalanceFromColumns(1, ptr.Ptr(6), ptr.Ptr(4), nil, nil)
	require.NoError(t, err)
	assert.True(t, balance.IsSessions())
	assert.Equal(t, 6, balance.Total())
	assert.Equal(t, 4, balance.Remaining())

	balance, err = BalanceFromColumns(1, nil, nil, ptr.Ptr(300), ptr.Ptr(-20))
	require.NoError(t, err)
	assert.True(t, balance.IsMinutes())
	assert.Equal(t, -20, balance.Remaining())

	broken := map[string][4]*int{
		"both pairs":    {ptr.Ptr(6), ptr.Ptr(6), ptr.Ptr(300), ptr.Ptr(300)},
		"neither pair":  {nil, nil, nil, nil},
		"half sessions": {ptr.Ptr(6), nil, nil, nil},
		"half minutes":  {nil, nil, nil, ptr.Ptr(10)},
	}
	for name, cols := range broken {
		_, err := BalanceFromColumns(9, cols[0], cols[1], cols[2], cols[3])
		assert.ErrorIs(t, err, ErrInvariantViolation, name)
	}
}

func TestBalanceColumns(t *testing.T) {
	ts, rs, tm, rm := SessionsBalance(6, 5).Columns()
	assert.Equal(t, 6, *ts)
	assert.Equal(t, 5, *rs)
	assert.Nil(t, tm)
	assert.Nil(t, rm)
}

func TestPackageTemplate(t *testing.T) {
	service := &Service{ID: 1, IsPackage: true, TotalSessions: ptr.Ptr(6)}
	balance, err := service.PackageTemplate()
	require.NoError(t, err)
	assert.Equal(t, SessionsBalance(6, 6), balance)
	assert.True(t, service.IsSessionsPackage())

	service = &Service{ID: 2, IsPackage: true, TotalMinutes: ptr.Ptr(300)}
	balance, err = service.PackageTemplate()
	require.NoError(t, err)
	assert.Equal(t, MinutesBalance(300, 300), balance)
	assert.False(t, service.IsSessionsPackage())

	_, err = (&Service{ID: 3, TotalSessions: ptr.Ptr(6), TotalMinutes: ptr.Ptr(300)}).PackageTemplate()
	assert.ErrorIs(t, err, ErrInvariantViolation)

	_, err = (&Service{ID: 4}).PackageTemplate()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPackagePayment_HasSingleTarget(t *testing.T) {
	assert.True(t, (&PackagePayment{ServicePackageID: ptr.Ptr(int64(1))}).HasSingleTarget())
	assert.True(t, (&PackagePayment{AppointmentID: ptr.Ptr(int64(1))}).HasSingleTarget())
	assert.False(t, (&PackagePayment{}).HasSingleTarget())
	assert.False(t, (&PackagePayment{ServicePackageID: ptr.Ptr(int64(1)), AppointmentID: ptr.Ptr(int64(2))}).HasSingleTarget())
}

func TestInsufficientBalanceError_Message(t *testing.T) {
	err := &InsufficientBalanceError{
		PackageID: 5,
		Unit:      UnitMoney,
		Requested: decimal.RequireFromString("100"),
		Remaining: decimal.RequireFromString("20.5"),
	}
	assert.Equal(t, "insufficient balance on package 5: requested 100 money, remaining 20.50", err.Error())
}
