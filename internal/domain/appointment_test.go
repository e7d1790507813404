package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

func TestCheckTransition(t *testing.T) {
	allowed := map[AppointmentStatus]map[AppointmentStatus]bool{
		StatusPending:   {StatusConfirmed: true, StatusCancelled: true, StatusNoShow: true},
		StatusConfirmed: {StatusCompleted: true, StatusCancelled: true, StatusNoShow: true},
	}
	all := []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

	for _, from := range all {
		for _, to := range all {
			err := CheckTransition(from, to)
			if allowed[from][to] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}

			var transition *InvalidTransitionError
			require.ErrorAs(t, err, &transition, "%s -> %s", from, to)
			assert.Equal(t, from, transition.From)
			assert.Equal(t, to, transition.To)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
}

func TestAppointmentStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusNoShow.IsTerminal())

	assert.True(t, StatusCompleted.IsBlocking())
	assert.False(t, StatusCancelled.IsBlocking())
	assert.False(t, StatusNoShow.IsBlocking())
}

func TestParseAppointmentStatus(t *testing.T) {
	status, err := ParseAppointmentStatus("no_show")
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, status)

	_, err = ParseAppointmentStatus("archived")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAppointment_Interval(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	appt := &Appointment{
		Date:            time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:       types.MustTimeString("09:30"),
		DurationMinutes: 45,
	}

	interval := appt.Interval(berlin)

	assert.True(t, interval.Start.Equal(time.Date(2025, 3, 10, 9, 30, 0, 0, berlin)))
	assert.True(t, interval.End.Equal(time.Date(2025, 3, 10, 10, 15, 0, 0, berlin)))
	end, err := appt.EndTime()
	require.NoError(t, err)
	assert.Equal(t, types.MustTimeString("10:15"), end)
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{NewValidationError("date", "is required"), ErrValidation},
		{NewNotFoundError("appointment", 7), ErrNotFound},
		{&ConflictError{Axis: AxisStaff, ConflictingAppointmentID: 3}, ErrConflict},
		{NewConcurrencyConflict(), ErrConflict},
		{&InvalidTransitionError{From: StatusCompleted, To: StatusConfirmed}, ErrInvalidTransition},
		{&InsufficientBalanceError{PackageID: 1, Unit: UnitSessions}, ErrInsufficientBalance},
		{&InvariantViolationError{Entity: "service_package", ID: 1}, ErrInvariantViolation},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.kind, tc.err.Error())
		assert.True(t, IsDomainError(tc.err))
	}
	assert.False(t, IsDomainError(assert.AnError))
	assert.Equal(t, "appointment 7 not found", NewNotFoundError("appointment", 7).Error())
}
