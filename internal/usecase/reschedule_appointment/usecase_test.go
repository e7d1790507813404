package reschedule_appointment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/usecase/usecasetest"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

func newUseCase(c *usecasetest.Clinic) *UseCase {
	return NewUseCase(c.Appointments, c.Logs, c.Catalog, c.Calendars, c.Guard, usecasetest.Tx{}, c.Clock, c.Config, usecasetest.DiscardLogger())
}

func TestReschedule_MovesAppointment(t *testing.T) {
	c := usecasetest.NewClinic()
	id := c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)
	tuesday := usecasetest.Monday.AddDate(0, 0, 1)

	resp, err := newUseCase(c).Reschedule(context.Background(), &RescheduleRequest{
		AppointmentID: id,
		Date:          tuesday,
		StartTime:     "14:00",
		ActorID:       ptr.Ptr(usecasetest.AdminID),
	})

	require.NoError(t, err)
	assert.Equal(t, types.MustTimeString("14:00"), resp.Appointment.StartTime)

	stored, _ := c.Appointments.Get(id)
	assert.True(t, stored.Date.Equal(tuesday))
	assert.Equal(t, types.MustTimeString("14:00:00"), stored.StartTime)
	assert.Equal(t, 30, stored.DurationMinutes)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)

	entries := c.Logs.Actions(id, domain.ActionRescheduled)
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-03-10", entries[0].Meta["from_date"])
	assert.Equal(t, "10:00:00", entries[0].Meta["from_start_time"])
	assert.Equal(t, "2025-03-11", entries[0].Meta["to_date"])
	assert.Equal(t, "14:00:00", entries[0].Meta["to_start_time"])
}

func TestReschedule_OverlappingItselfIsAllowed(t *testing.T) {
	c := usecasetest.NewClinic()
	id := c.Book(usecasetest.ConsultationID, usecasetest.AnnaID, "10:00", domain.StatusPending)

	_, err := newUseCase(c).Reschedule(context.Background(), &RescheduleRequest{
		AppointmentID: id,
		Date:          usecasetest.Monday,
		StartTime:     "10:30",
	})

	require.NoError(t, err)
}

func TestReschedule_StaffBusy(t *testing.T) {
	c := usecasetest.NewClinic()
	busy := c.Book(usecasetest.ConsultationID, usecasetest.AnnaID, "14:00", domain.StatusConfirmed)
	id := c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)

	_, err := newUseCase(c).Reschedule(context.Background(), &RescheduleRequest{
		AppointmentID: id,
		Date:          usecasetest.Monday,
		StartTime:     "14:30",
	})

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.AxisStaff, conflict.Axis)
	assert.Equal(t, busy, conflict.ConflictingAppointmentID)

	stored, _ := c.Appointments.Get(id)
	assert.Equal(t, types.MustTimeString("10:00"), stored.StartTime)
	assert.Empty(t, c.Logs.Actions(id, domain.ActionRescheduled))
}

func TestReschedule_StaffOnTimeOff(t *testing.T) {
	c := usecasetest.NewClinic()
	c.Catalog.TimeOffs = append(c.Catalog.TimeOffs, domain.TimeOffException{
		ID:        1,
		StaffID:   usecasetest.AnnaID,
		Date:      usecasetest.Monday,
		StartTime: ptr.Ptr(types.MustTimeString("13:00")),
		EndTime:   ptr.Ptr(types.MustTimeString("15:00")),
	})
	id := c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusPending)

	_, err := newUseCase(c).Reschedule(context.Background(), &RescheduleRequest{
		AppointmentID: id,
		Date:          usecasetest.Monday,
		StartTime:     "13:30",
	})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReschedule_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		status domain.AppointmentStatus
		start  types.TimeString
		kind   error
	}{
		{"completed appointment", domain.StatusCompleted, "12:00", domain.ErrValidation},
		{"cancelled appointment", domain.StatusCancelled, "12:00", domain.ErrValidation},
		{"ends after the workday", domain.StatusPending, "16:45", domain.ErrValidation},
		{"before the workday", domain.StatusPending, "08:30", domain.ErrValidation},
		{"malformed time", domain.StatusPending, "noon", domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := usecasetest.NewClinic()
			id := c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", tc.status)

			_, err := newUseCase(c).Reschedule(context.Background(), &RescheduleRequest{
				AppointmentID: id,
				Date:          usecasetest.Monday,
				StartTime:     tc.start,
			})

			assert.ErrorIs(t, err, tc.kind)
		})
	}

	c := usecasetest.NewClinic()
	_, err := newUseCase(c).Reschedule(context.Background(), &RescheduleRequest{
		AppointmentID: 404,
		Date:          usecasetest.Monday,
		StartTime:     "12:00",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssignStaff_Reassigns(t *testing.T) {
	c := usecasetest.NewClinic()
	id := c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)

	resp, err := newUseCase(c).AssignStaff(context.Background(), &AssignStaffRequest{
		AppointmentID: id,
		StaffID:       usecasetest.BorisID,
	})

	require.NoError(t, err)
	assert.Equal(t, usecasetest.BorisID, *resp.Appointment.StaffID)
	stored, _ := c.Appointments.Get(id)
	assert.Equal(t, usecasetest.BorisID, *stored.StaffID)

	entries := c.Logs.Actions(id, domain.ActionReassigned)
	require.Len(t, entries, 1)
	assert.Equal(t, usecasetest.AnnaID, entries[0].Meta["previous_staff_id"])
	assert.Equal(t, usecasetest.BorisID, entries[0].Meta["staff_id"])
}

func TestAssignStaff_FirstAssignment(t *testing.T) {
	c := usecasetest.NewClinic()
	id := c.Appointments.Seed(domain.Appointment{
		ServiceID:       usecasetest.ConsultationID,
		Date:            usecasetest.Monday,
		StartTime:       types.MustTimeString("11:00"),
		DurationMinutes: 60,
		Status:          domain.StatusPending,
		ReferenceCode:   "UNASSIGNED",
	})

	_, err := newUseCase(c).AssignStaff(context.Background(), &AssignStaffRequest{
		AppointmentID: id,
		StaffID:       usecasetest.AnnaID,
	})

	require.NoError(t, err)
	assert.Len(t, c.Logs.Actions(id, domain.ActionAssigned), 1)
	assert.Empty(t, c.Logs.Actions(id, domain.ActionReassigned))
}

func TestAssignStaff_SameStaffIsNoop(t *testing.T) {
	c := usecasetest.NewClinic()
	id := c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)

	_, err := newUseCase(c).AssignStaff(context.Background(), &AssignStaffRequest{
		AppointmentID: id,
		StaffID:       usecasetest.AnnaID,
	})

	require.NoError(t, err)
	assert.Empty(t, c.Logs.Actions(id, domain.ActionReassigned))
}

func TestAssignStaff_NewStaffBusy(t *testing.T) {
	c := usecasetest.NewClinic()
	c.Book(usecasetest.ConsultationID, usecasetest.BorisID, "10:00", domain.StatusPending)
	id := c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)

	_, err := newUseCase(c).AssignStaff(context.Background(), &AssignStaffRequest{
		AppointmentID: id,
		StaffID:       usecasetest.BorisID,
	})

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.AxisStaff, conflict.Axis)
	stored, _ := c.Appointments.Get(id)
	assert.Equal(t, usecasetest.AnnaID, *stored.StaffID)
}

func TestAssignStaff_Rejections(t *testing.T) {
	cases := []struct {
		name      string
		serviceID int64
		status    domain.AppointmentStatus
		staffID   int64
		kind      error
	}{
		{"staff without the service", usecasetest.MassageID, domain.StatusPending, usecasetest.AnnaID, domain.ErrValidation},
		{"inactive staff", usecasetest.ConsultationID, domain.StatusPending, usecasetest.ClaraID, domain.ErrValidation},
		{"unknown staff", usecasetest.ConsultationID, domain.StatusPending, 99, domain.ErrNotFound},
		{"terminal appointment", usecasetest.ConsultationID, domain.StatusNoShow, usecasetest.AnnaID, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := usecasetest.NewClinic()
			id := c.Book(tc.serviceID, usecasetest.BorisID, "10:00", tc.status)

			_, err := newUseCase(c).AssignStaff(context.Background(), &AssignStaffRequest{
				AppointmentID: id,
				StaffID:       tc.staffID,
			})

			assert.ErrorIs(t, err, tc.kind)
		})
	}
}
