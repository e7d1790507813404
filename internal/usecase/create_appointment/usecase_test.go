package create_appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/usecase/usecasetest"
	"github.com/m04kA/SMC-ClinicService/pkg/metrics"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

type countingMetrics struct {
	metrics.Noop
	created int
}

func (m *countingMetrics) AppointmentCreated() { m.created++ }

func newUseCase(c *usecasetest.Clinic, m MetricsRecorder) *UseCase {
	return NewUseCase(c.Appointments, c.Logs, c.Catalog, c.Calendars, c.Guard, c.Ledger,
		usecasetest.Tx{}, c.Clock, m, c.Config, usecasetest.DiscardLogger())
}

func request(serviceID int64, start string) *Request {
	return &Request{
		ServiceID: serviceID,
		Date:      usecasetest.Monday,
		StartTime: types.MustTimeString(start),
		UserID:    ptr.Ptr(usecasetest.CustomerID),
		ActorID:   ptr.Ptr(usecasetest.CustomerID),
	}
}

func TestExecute_BooksFirstFreeCandidate(t *testing.T) {
	c := usecasetest.NewClinic()
	m := &countingMetrics{}

	resp, err := newUseCase(c, m).Execute(context.Background(), request(usecasetest.ConsultationID, "10:00"))

	require.NoError(t, err)
	appt := resp.Appointment
	assert.Equal(t, usecasetest.AnnaID, *appt.StaffID)
	assert.Equal(t, domain.StatusPending, appt.Status)
	assert.Equal(t, 60, appt.DurationMinutes)
	assert.Equal(t, "80", appt.Price.String())
	assert.Len(t, appt.ReferenceCode, 10)
	assert.Nil(t, appt.ServicePackageID)
	assert.Nil(t, resp.Package)
	assert.True(t, resp.Events[0].Type == domain.EventAppointmentCreated)
	assert.Equal(t, 1, m.created)

	created := c.Logs.Actions(appt.ID, domain.ActionCreated)
	require.Len(t, created, 1)
	assert.Equal(t, appt.ReferenceCode, created[0].Meta["reference_code"])
	assert.Equal(t, usecasetest.CustomerID, *created[0].UserID)
}

func TestExecute_StaffConflictMovesToNextCandidate(t *testing.T) {
	c := usecasetest.NewClinic()
	c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)

	resp, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), request(usecasetest.ConsultationID, "10:00"))

	require.NoError(t, err)
	assert.Equal(t, usecasetest.BorisID, *resp.Appointment.StaffID)
}

func TestExecute_LocksAllCandidatesBeforeService(t *testing.T) {
	c := usecasetest.NewClinic()
	c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)

	resp, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), request(usecasetest.ConsultationID, "10:00"))

	require.NoError(t, err)
	assert.Equal(t, usecasetest.BorisID, *resp.Appointment.StaffID)
	assert.Equal(t, []string{
		"staff:10:2025-03-10",
		"staff:11:2025-03-10",
		"service:1:2025-03-10",
	}, c.Appointments.Locks)
}

func TestExecute_ServiceConflictStopsSearch(t *testing.T) {
	c := usecasetest.NewClinic()
	existing := c.Book(usecasetest.ConsultationID, usecasetest.BorisID, "10:00", domain.StatusPending)

	_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), request(usecasetest.ConsultationID, "10:30"))

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.AxisService, conflict.Axis)
	assert.Equal(t, existing, conflict.ConflictingAppointmentID)
	assert.Equal(t, 1, c.Appointments.Count())
}

func TestExecute_NoStaffFree(t *testing.T) {
	c := usecasetest.NewClinic()
	c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusPending)
	c.Book(usecasetest.MassageID, usecasetest.BorisID, "10:00", domain.StatusPending)

	_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), request(usecasetest.ConsultationID, "10:00"))

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.AxisNoStaff, conflict.Axis)
}

func TestExecute_NoDoubleBooking(t *testing.T) {
	c := usecasetest.NewClinic()
	uc := newUseCase(c, metrics.Noop{})
	req := request(usecasetest.ConsultationID, "10:00")
	req.StaffID = ptr.Ptr(usecasetest.AnnaID)

	_, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, c.Appointments.Count())

	// staff lock is always taken before the service lock
	require.GreaterOrEqual(t, len(c.Appointments.Locks), 2)
	assert.Equal(t, "staff:10:2025-03-10", c.Appointments.Locks[0])
	assert.Equal(t, "service:1:2025-03-10", c.Appointments.Locks[1])
}

func TestExecute_BackToBackIsAllowed(t *testing.T) {
	c := usecasetest.NewClinic()
	uc := newUseCase(c, metrics.Noop{})
	first := request(usecasetest.ConsultationID, "10:00")
	first.StaffID = ptr.Ptr(usecasetest.AnnaID)
	second := request(usecasetest.ConsultationID, "11:00")
	second.StaffID = ptr.Ptr(usecasetest.AnnaID)

	_, err := uc.Execute(context.Background(), first)
	require.NoError(t, err)
	_, err = uc.Execute(context.Background(), second)
	require.NoError(t, err)
}

func TestExecute_RequestedStaff(t *testing.T) {
	t.Run("not providing the service", func(t *testing.T) {
		c := usecasetest.NewClinic()
		req := request(usecasetest.MassageID, "10:00")
		req.StaffID = ptr.Ptr(usecasetest.AnnaID)

		_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), req)

		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("day off", func(t *testing.T) {
		c := usecasetest.NewClinic()
		c.Catalog.TimeOffs = append(c.Catalog.TimeOffs, domain.TimeOffException{
			ID: 1, StaffID: usecasetest.AnnaID, Date: usecasetest.Monday,
		})
		req := request(usecasetest.ConsultationID, "10:00")
		req.StaffID = ptr.Ptr(usecasetest.AnnaID)

		_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), req)

		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, 0, c.Appointments.Count())
	})

	t.Run("unknown staff", func(t *testing.T) {
		c := usecasetest.NewClinic()
		req := request(usecasetest.ConsultationID, "10:00")
		req.StaffID = ptr.Ptr(int64(404))

		_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), req)

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestExecute_SlotValidation(t *testing.T) {
	t.Run("ends after the workday", func(t *testing.T) {
		c := usecasetest.NewClinic()
		_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), request(usecasetest.ConsultationID, "16:30"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("inside the notice window", func(t *testing.T) {
		c := usecasetest.NewClinic()
		c.Clock.At = usecasetest.Monday.Add(9*time.Hour + 50*time.Minute)
		_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), request(usecasetest.ConsultationID, "10:00"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown service", func(t *testing.T) {
		c := usecasetest.NewClinic()
		_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), request(99, "10:00"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestExecute_ReferenceCode(t *testing.T) {
	t.Run("retries on collision", func(t *testing.T) {
		c := usecasetest.NewClinic()
		c.Book(usecasetest.LaserID, usecasetest.AnnaID, "15:00", domain.StatusPending)
		taken, _ := c.Appointments.Get(1)

		uc := newUseCase(c, metrics.Noop{})
		codes := []string{taken.ReferenceCode, "FRESHCODE1"}
		uc.generateCode = func() (string, error) {
			code := codes[0]
			codes = codes[1:]
			return code, nil
		}

		resp, err := uc.Execute(context.Background(), request(usecasetest.ConsultationID, "10:00"))

		require.NoError(t, err)
		assert.Equal(t, "FRESHCODE1", resp.Appointment.ReferenceCode)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		c := usecasetest.NewClinic()
		c.Book(usecasetest.LaserID, usecasetest.AnnaID, "15:00", domain.StatusPending)
		taken, _ := c.Appointments.Get(1)

		uc := newUseCase(c, metrics.Noop{})
		calls := 0
		uc.generateCode = func() (string, error) {
			calls++
			return taken.ReferenceCode, nil
		}

		_, err := uc.Execute(context.Background(), request(usecasetest.ConsultationID, "10:00"))

		assert.ErrorIs(t, err, ErrReferenceExhausted)
		assert.Equal(t, domain.MaxReferenceAttempts, calls)
	})

	t.Run("generator failure", func(t *testing.T) {
		c := usecasetest.NewClinic()
		uc := newUseCase(c, metrics.Noop{})
		uc.generateCode = func() (string, error) { return "", errors.New("entropy exhausted") }

		_, err := uc.Execute(context.Background(), request(usecasetest.ConsultationID, "10:00"))

		assert.ErrorIs(t, err, ErrInternal)
	})
}

func TestExecute_SessionsPackage(t *testing.T) {
	c := usecasetest.NewClinic()
	uc := newUseCase(c, metrics.Noop{})

	first, err := uc.Execute(context.Background(), request(usecasetest.LaserID, "10:00"))
	require.NoError(t, err)

	require.NotNil(t, first.Package)
	assert.True(t, first.PackageCreated)
	assert.Equal(t, 6, first.Package.Balance.Remaining())
	assert.Equal(t, "450", first.Package.PriceTotal.String())
	stored, _ := c.Appointments.Get(first.Appointment.ID)
	assert.Equal(t, first.Package.ID, *stored.ServicePackageID)
	assert.Len(t, c.Logs.Actions(first.Appointment.ID, domain.ActionPackageAttached), 1)
	result := &domain.TransitionResult{Events: first.Events}
	assert.True(t, result.HasEvent(domain.EventPackageCreated))
	assert.True(t, result.HasEvent(domain.EventPackageAttached))

	second, err := uc.Execute(context.Background(), request(usecasetest.LaserID, "11:00"))
	require.NoError(t, err)

	assert.False(t, second.PackageCreated)
	assert.Equal(t, first.Package.ID, second.Package.ID)
	assert.Len(t, c.Packages.All(), 1)
}

func TestExecute_NoPackageForGuestsOrMinutes(t *testing.T) {
	c := usecasetest.NewClinic()
	uc := newUseCase(c, metrics.Noop{})

	guest := request(usecasetest.LaserID, "10:00")
	guest.UserID = nil
	resp, err := uc.Execute(context.Background(), guest)
	require.NoError(t, err)
	assert.Nil(t, resp.Appointment.ServicePackageID)

	resp, err = uc.Execute(context.Background(), request(usecasetest.MassageID, "13:00"))
	require.NoError(t, err)
	assert.Nil(t, resp.Appointment.ServicePackageID)

	assert.Empty(t, c.Packages.All())
}

func TestExecute_IdempotentReplay(t *testing.T) {
	c := usecasetest.NewClinic()
	m := &countingMetrics{}
	uc := newUseCase(c, m)
	req := request(usecasetest.ConsultationID, "10:00")
	req.IdempotencyKey = "retry-1"

	first, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Idempotent)
	assert.Equal(t, first.Appointment.ID, second.Appointment.ID)
	assert.Equal(t, 1, c.Appointments.Count())
	assert.Equal(t, 1, m.created)
}
