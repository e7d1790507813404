package appointment_transitions

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
	"github.com/m04kA/SMC-ClinicService/internal/usecase/usecasetest"
	"github.com/m04kA/SMC-ClinicService/pkg/metrics"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
)

type transitionMetrics struct {
	metrics.Noop
	edges []string
}

func (m *transitionMetrics) StatusChanged(from, to string) {
	m.edges = append(m.edges, from+"->"+to)
}

func newUseCase(c *usecasetest.Clinic, m MetricsRecorder) *UseCase {
	return NewUseCase(c.Appointments, c.Logs, c.Guard, c.Ledger, usecasetest.Tx{}, c.Clock, c.Config, m, usecasetest.DiscardLogger())
}

// withPackage books an appointment and attaches a fresh package of the same service to it
func withPackage(t *testing.T, c *usecasetest.Clinic, serviceID, staffID int64, start string) (int64, *domain.ServicePackage) {
	t.Helper()
	ctx := context.Background()

	pkg, err := c.Ledger.CreatePackage(ctx, &packages.CreatePackageRequest{
		UserID:     usecasetest.CustomerID,
		ServiceID:  serviceID,
		PriceTotal: decimal.RequireFromString("300"),
	})
	require.NoError(t, err)

	id := c.Book(serviceID, staffID, start, domain.StatusConfirmed)
	require.NoError(t, c.Appointments.UpdatePackage(ctx, id, ptr.Ptr(pkg.ID)))
	return id, pkg
}

func remaining(t *testing.T, c *usecasetest.Clinic, packageID int64) *domain.ServicePackage {
	t.Helper()
	pkg, err := c.Packages.GetByID(context.Background(), packageID)
	require.NoError(t, err)
	return pkg
}

func TestConfirm(t *testing.T) {
	c := usecasetest.NewClinic()
	m := &transitionMetrics{}
	id := c.Book(usecasetest.ConsultationID, usecasetest.AnnaID, "10:00", domain.StatusPending)

	result, err := newUseCase(c, m).Confirm(context.Background(), &Request{AppointmentID: id, ActorID: ptr.Ptr(usecasetest.AdminID)})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, result.Appointment.Status)
	assert.True(t, result.HasEvent(domain.EventStatusChanged))
	assert.Equal(t, []string{"pending->confirmed"}, m.edges)

	stored, _ := c.Appointments.Get(id)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)

	entries := c.Logs.Actions(id, domain.ActionStatusChanged)
	require.Len(t, entries, 1)
	assert.Equal(t, "pending", entries[0].Meta["from"])
	assert.Equal(t, "confirmed", entries[0].Meta["to"])
	assert.Equal(t, usecasetest.AdminID, *entries[0].UserID)
}

func TestConfirm_RejectsOverlap(t *testing.T) {
	c := usecasetest.NewClinic()
	c.Book(usecasetest.LaserID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)
	id := c.Book(usecasetest.ConsultationID, usecasetest.AnnaID, "10:15", domain.StatusPending)

	_, err := newUseCase(c, metrics.Noop{}).Confirm(context.Background(), &Request{AppointmentID: id})

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.AxisStaff, conflict.Axis)
	stored, _ := c.Appointments.Get(id)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Empty(t, c.Logs.Actions(id, domain.ActionStatusChanged))
}

func TestComplete_DeductsSessionOnce(t *testing.T) {
	c := usecasetest.NewClinic()
	id, pkg := withPackage(t, c, usecasetest.LaserID, usecasetest.AnnaID, "10:00")

	result, err := newUseCase(c, metrics.Noop{}).Complete(context.Background(), &Request{AppointmentID: id})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Appointment.Status)
	assert.True(t, result.HasEvent(domain.EventPackageDeducted))
	assert.False(t, result.HasEvent(domain.EventPackageExhausted))
	assert.Equal(t, 5, remaining(t, c, pkg.ID).Balance.Remaining())

	deducted := c.Logs.Actions(id, domain.ActionPackageDeducted)
	require.Len(t, deducted, 1)
	assert.Equal(t, pkg.ID, deducted[0].Meta["package_id"])
	assert.Equal(t, 1, deducted[0].Meta["amount"])

	logs := c.Packages.Logs(pkg.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, id, *logs[0].AppointmentID)
	assert.Equal(t, usecasetest.AnnaID, *logs[0].StaffID)
}

func TestComplete_SkipsWhenAlreadyCharged(t *testing.T) {
	c := usecasetest.NewClinic()
	id, pkg := withPackage(t, c, usecasetest.LaserID, usecasetest.AnnaID, "10:00")
	_, err := c.Logs.Append(context.Background(), &domain.AppointmentLog{
		AppointmentID: id,
		Action:        domain.ActionPackageDeducted,
		Meta:          map[string]interface{}{"package_id": pkg.ID},
	})
	require.NoError(t, err)

	result, err := newUseCase(c, metrics.Noop{}).Complete(context.Background(), &Request{AppointmentID: id})

	require.NoError(t, err)
	assert.False(t, result.HasEvent(domain.EventPackageDeducted))
	assert.Equal(t, 6, remaining(t, c, pkg.ID).Balance.Remaining())
	assert.Empty(t, c.Packages.Logs(pkg.ID))
}

func TestComplete_LastSessionExhaustsPackage(t *testing.T) {
	c := usecasetest.NewClinic()
	id, pkg := withPackage(t, c, usecasetest.LaserID, usecasetest.AnnaID, "10:00")
	_, err := c.Ledger.DeductSessions(context.Background(), &packages.DeductRequest{PackageID: pkg.ID, Amount: 5})
	require.NoError(t, err)

	result, err := newUseCase(c, metrics.Noop{}).Complete(context.Background(), &Request{AppointmentID: id})

	require.NoError(t, err)
	assert.True(t, result.HasEvent(domain.EventPackageExhausted))
	after := remaining(t, c, pkg.ID)
	assert.Equal(t, 0, after.Balance.Remaining())
	assert.Equal(t, domain.PackageExhausted, after.Status)
}

func TestComplete_MinutesMayGoNegative(t *testing.T) {
	c := usecasetest.NewClinic()
	id, pkg := withPackage(t, c, usecasetest.MassageID, usecasetest.BorisID, "10:00")
	_, err := c.Ledger.DeductMinutes(context.Background(), &packages.DeductRequest{PackageID: pkg.ID, Amount: 270})
	require.NoError(t, err)

	result, err := newUseCase(c, metrics.Noop{}).Complete(context.Background(), &Request{AppointmentID: id})

	require.NoError(t, err)
	assert.True(t, result.HasEvent(domain.EventPackageBalanceNegative))
	assert.False(t, result.HasEvent(domain.EventPackageExhausted))
	after := remaining(t, c, pkg.ID)
	assert.Equal(t, -15, after.Balance.Remaining())
	assert.Equal(t, domain.PackageActive, after.Status)
}

func TestCancelAndNoShow_HaveNoPackageSideEffects(t *testing.T) {
	c := usecasetest.NewClinic()
	uc := newUseCase(c, metrics.Noop{})
	cancelled, pkg := withPackage(t, c, usecasetest.LaserID, usecasetest.AnnaID, "10:00")
	noShow := c.Book(usecasetest.LaserID, usecasetest.AnnaID, "11:00", domain.StatusPending)

	result, err := uc.Cancel(context.Background(), &Request{AppointmentID: cancelled})
	require.NoError(t, err)
	assert.Len(t, result.Events, 1)

	result, err = uc.NoShow(context.Background(), &Request{AppointmentID: noShow})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoShow, result.Appointment.Status)

	assert.Equal(t, 6, remaining(t, c, pkg.ID).Balance.Remaining())
}

func TestCancel_CustomerInsideNoticeWindow(t *testing.T) {
	c := usecasetest.NewClinic()
	c.Config.MinNoticeMinutes = 60
	c.Clock.At = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	uc := newUseCase(c, metrics.Noop{})
	id := c.Book(usecasetest.ConsultationID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)

	_, err := uc.Cancel(context.Background(), &Request{AppointmentID: id, ActorID: ptr.Ptr(usecasetest.CustomerID)})

	assert.ErrorIs(t, err, domain.ErrValidation)
	stored, _ := c.Appointments.Get(id)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.Empty(t, c.Logs.Actions(id, domain.ActionStatusChanged))

	result, err := uc.Cancel(context.Background(), &Request{AppointmentID: id, ActorID: ptr.Ptr(usecasetest.AdminID)})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, result.Appointment.Status)
}

func TestCancel_CustomerOutsideNoticeWindow(t *testing.T) {
	c := usecasetest.NewClinic()
	c.Config.MinNoticeMinutes = 60
	c.Clock.At = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	id := c.Book(usecasetest.ConsultationID, usecasetest.AnnaID, "10:00", domain.StatusPending)

	result, err := newUseCase(c, metrics.Noop{}).Cancel(context.Background(), &Request{AppointmentID: id, ActorID: ptr.Ptr(usecasetest.CustomerID)})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, result.Appointment.Status)
}

func TestExecute_TransitionTable(t *testing.T) {
	statuses := []domain.AppointmentStatus{
		domain.StatusPending, domain.StatusConfirmed, domain.StatusCompleted, domain.StatusCancelled, domain.StatusNoShow,
	}
	legal := map[domain.AppointmentStatus][]domain.AppointmentStatus{
		domain.StatusPending:   {domain.StatusConfirmed, domain.StatusCancelled, domain.StatusNoShow},
		domain.StatusConfirmed: {domain.StatusCompleted, domain.StatusCancelled, domain.StatusNoShow},
	}

	for _, from := range statuses {
		for _, to := range statuses[1:] {
			from, to := from, to
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				c := usecasetest.NewClinic()
				id := c.Book(usecasetest.ConsultationID, usecasetest.AnnaID, "10:00", from)

				_, err := newUseCase(c, metrics.Noop{}).Execute(context.Background(), &Request{AppointmentID: id, Status: to})

				stored, _ := c.Appointments.Get(id)
				if contains(legal[from], to) {
					require.NoError(t, err)
					assert.Equal(t, to, stored.Status)
					return
				}
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				assert.Equal(t, from, stored.Status)
			})
		}
	}
}

func contains(list []domain.AppointmentStatus, s domain.AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestExecute_Errors(t *testing.T) {
	c := usecasetest.NewClinic()
	uc := newUseCase(c, metrics.Noop{})
	id := c.Book(usecasetest.ConsultationID, usecasetest.AnnaID, "10:00", domain.StatusConfirmed)

	_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Status: domain.StatusPending})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(context.Background(), &Request{AppointmentID: id})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = uc.Execute(context.Background(), &Request{AppointmentID: 404, Status: domain.StatusCancelled})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
