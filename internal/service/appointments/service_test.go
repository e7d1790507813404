package appointments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ClinicService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ClinicService/pkg/clock"
	"github.com/m04kA/SMC-ClinicService/pkg/logger"
	"github.com/m04kA/SMC-ClinicService/pkg/metrics"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

type mockAppointments struct{ mock.Mock }

func (m *mockAppointments) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	args := m.Called(ctx, id)
	appt, _ := args.Get(0).(*domain.Appointment)
	return appt, args.Error(1)
}

func (m *mockAppointments) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	args := m.Called(ctx, id)
	appt, _ := args.Get(0).(*domain.Appointment)
	return appt, args.Error(1)
}

func (m *mockAppointments) GetByReference(ctx context.Context, code string) (*domain.Appointment, error) {
	args := m.Called(ctx, code)
	appt, _ := args.Get(0).(*domain.Appointment)
	return appt, args.Error(1)
}

func (m *mockAppointments) UpdateDetails(ctx context.Context, id int64, upd domain.AppointmentUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}

func (m *mockAppointments) UpdatePackage(ctx context.Context, id int64, packageID *int64) error {
	return m.Called(ctx, id, packageID).Error(0)
}

func (m *mockAppointments) SoftDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAppointments) List(ctx context.Context, filter domain.AppointmentListFilter) ([]*domain.Appointment, error) {
	args := m.Called(ctx, filter)
	appts, _ := args.Get(0).([]*domain.Appointment)
	return appts, args.Error(1)
}

type mockLogs struct{ mock.Mock }

func (m *mockLogs) Append(ctx context.Context, entry *domain.AppointmentLog) (*domain.AppointmentLog, error) {
	args := m.Called(ctx, entry)
	return entry, args.Error(0)
}

func (m *mockLogs) List(ctx context.Context, filter domain.AppointmentLogFilter) ([]*domain.AppointmentLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]*domain.AppointmentLog)
	return logs, args.Error(1)
}

type mockPackages struct{ mock.Mock }

func (m *mockPackages) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ServicePackage, error) {
	args := m.Called(ctx, id)
	pkg, _ := args.Get(0).(*domain.ServicePackage)
	return pkg, args.Error(1)
}

func (m *mockPackages) CreatePayment(ctx context.Context, p *domain.PackagePayment) (*domain.PackagePayment, error) {
	args := m.Called(ctx, p)
	p.ID = 1
	return p, args.Error(0)
}

func (m *mockPackages) SumActivePaymentsForAppointment(ctx context.Context, appointmentID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, appointmentID)
	sum, _ := args.Get(0).(decimal.Decimal)
	return sum, args.Error(1)
}

type passthroughTx struct{}

func (passthroughTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	appointments *mockAppointments
	logs         *mockLogs
	packages     *mockPackages
	service      *Service
}

func newFixture() *fixture {
	f := &fixture{
		appointments: &mockAppointments{},
		logs:         &mockLogs{},
		packages:     &mockPackages{},
	}
	f.service = NewService(f.appointments, f.logs, f.packages, passthroughTx{}, clock.Fixed{At: now}, metrics.Noop{},
		logger.NewWithWriter(io.Discard, "error"), "EUR")
	return f
}

var (
	apptDate = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	now      = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
)

func pendingAppointment() *domain.Appointment {
	return &domain.Appointment{
		ID:              10,
		ServiceID:       3,
		StaffID:         ptr.Ptr(int64(1)),
		UserID:          ptr.Ptr(int64(42)),
		Date:            apptDate,
		StartTime:       types.MustTimeString("10:00"),
		DurationMinutes: 30,
		Price:           decimal.RequireFromString("75"),
		Status:          domain.StatusPending,
		ReferenceCode:   "ABCDE12345",
	}
}

func activePackage() *domain.ServicePackage {
	return &domain.ServicePackage{
		ID:        5,
		UserID:    42,
		ServiceID: 3,
		Balance:   domain.SessionsBalance(6, 2),
		Status:    domain.PackageActive,
	}
}

func TestService_GetByReference_NotFound(t *testing.T) {
	f := newFixture()
	f.appointments.On("GetByReference", mock.Anything, "ABCDE12345").Return(nil, appointmentRepo.ErrAppointmentNotFound)

	_, err := f.service.GetByReference(context.Background(), " abcde12345 ")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.appointments.AssertExpectations(t)
}

func TestService_AttachPackage(t *testing.T) {
	t.Run("attaches and logs", func(t *testing.T) {
		f := newFixture()
		f.appointments.On("GetByIDForUpdate", mock.Anything, int64(10)).Return(pendingAppointment(), nil)
		f.packages.On("GetByIDForUpdate", mock.Anything, int64(5)).Return(activePackage(), nil)
		f.appointments.On("UpdatePackage", mock.Anything, int64(10), ptr.Ptr(int64(5))).Return(nil)
		f.logs.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AppointmentLog) bool {
			return e.Action == domain.ActionPackageAttached && e.Meta["package_id"] == int64(5)
		})).Return(nil)

		appt, err := f.service.AttachPackage(context.Background(), 10, 5, ptr.Ptr(int64(99)))

		require.NoError(t, err)
		assert.Equal(t, int64(5), *appt.ServicePackageID)
		f.appointments.AssertExpectations(t)
		f.logs.AssertExpectations(t)
	})

	cases := []struct {
		name   string
		mutate func(*domain.ServicePackage)
	}{
		{"another customer", func(p *domain.ServicePackage) { p.UserID = 7 }},
		{"another service", func(p *domain.ServicePackage) { p.ServiceID = 4 }},
		{"not active", func(p *domain.ServicePackage) { p.Status = domain.PackageExpired }},
		{"expired window", func(p *domain.ServicePackage) { p.ExpiresOn = ptr.Ptr(apptDate.AddDate(0, 0, -1)) }},
		{"no sessions left", func(p *domain.ServicePackage) { p.Balance = domain.SessionsBalance(6, 0) }},
		{"minutes do not cover", func(p *domain.ServicePackage) { p.Balance = domain.MinutesBalance(60, 20) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			pkg := activePackage()
			tc.mutate(pkg)
			f.appointments.On("GetByIDForUpdate", mock.Anything, int64(10)).Return(pendingAppointment(), nil)
			f.packages.On("GetByIDForUpdate", mock.Anything, int64(5)).Return(pkg, nil)

			_, err := f.service.AttachPackage(context.Background(), 10, 5, nil)

			assert.ErrorIs(t, err, domain.ErrValidation)
			f.appointments.AssertNotCalled(t, "UpdatePackage", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_DetachPackage_RejectedWhenCompleted(t *testing.T) {
	f := newFixture()
	appt := pendingAppointment()
	appt.Status = domain.StatusCompleted
	appt.ServicePackageID = ptr.Ptr(int64(5))
	f.appointments.On("GetByIDForUpdate", mock.Anything, int64(10)).Return(appt, nil)

	_, err := f.service.DetachPackage(context.Background(), 10, nil)

	assert.ErrorIs(t, err, domain.ErrValidation)
	f.appointments.AssertNotCalled(t, "UpdatePackage", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_UpdateDetails(t *testing.T) {
	t.Run("empty update", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.UpdateDetails(context.Background(), 10, domain.AppointmentUpdate{}, nil)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("clears notes and logs fields", func(t *testing.T) {
		f := newFixture()
		upd := domain.AppointmentUpdate{Notes: domain.Null[string](), AdminNotes: domain.Some("call back")}
		f.appointments.On("GetByIDForUpdate", mock.Anything, int64(10)).Return(pendingAppointment(), nil)
		f.appointments.On("UpdateDetails", mock.Anything, int64(10), upd).Return(nil)
		f.appointments.On("GetByID", mock.Anything, int64(10)).Return(pendingAppointment(), nil)
		f.logs.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.AppointmentLog) bool {
			fields, ok := e.Meta["fields"].([]string)
			return ok && e.Action == domain.ActionNotesUpdated && assert.ObjectsAreEqual([]string{"notes", "admin_notes"}, fields)
		})).Return(nil)

		_, err := f.service.UpdateDetails(context.Background(), 10, upd, nil)

		require.NoError(t, err)
		f.logs.AssertExpectations(t)
	})
}

func TestService_Delete_NotFound(t *testing.T) {
	f := newFixture()
	f.appointments.On("GetByIDForUpdate", mock.Anything, int64(10)).Return(nil, appointmentRepo.ErrAppointmentNotFound)

	err := f.service.Delete(context.Background(), 10, nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.appointments.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestService_RecordPayment(t *testing.T) {
	t.Run("one-off appointment", func(t *testing.T) {
		f := newFixture()
		f.appointments.On("GetByIDForUpdate", mock.Anything, int64(10)).Return(pendingAppointment(), nil)
		f.packages.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *domain.PackagePayment) bool {
			return p.HasSingleTarget() && p.AppointmentID != nil && p.Currency == "EUR" && *p.UserID == 42
		})).Return(nil)
		f.packages.On("SumActivePaymentsForAppointment", mock.Anything, int64(10)).Return(decimal.RequireFromString("75"), nil)

		result, err := f.service.RecordPayment(context.Background(), &PaymentRequest{
			AppointmentID: 10, Amount: decimal.RequireFromString("75"), Method: domain.PaymentCash,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(10), *result.Payment.AppointmentID)
		assert.Equal(t, "75.00", result.AmountPaid.StringFixed(2))
		assert.True(t, result.RemainingToPay.IsZero())
		f.packages.AssertExpectations(t)
	})

	t.Run("partial payment reports remainder", func(t *testing.T) {
		f := newFixture()
		f.appointments.On("GetByIDForUpdate", mock.Anything, int64(10)).Return(pendingAppointment(), nil)
		f.packages.On("CreatePayment", mock.Anything, mock.Anything).Return(nil)
		f.packages.On("SumActivePaymentsForAppointment", mock.Anything, int64(10)).Return(decimal.RequireFromString("50"), nil)

		result, err := f.service.RecordPayment(context.Background(), &PaymentRequest{
			AppointmentID: 10, Amount: decimal.RequireFromString("20"), Method: domain.PaymentCard, Currency: "eur",
		})

		require.NoError(t, err)
		assert.Equal(t, "EUR", result.Payment.Currency)
		assert.Equal(t, "50.00", result.AmountPaid.StringFixed(2))
		assert.Equal(t, "25.00", result.RemainingToPay.StringFixed(2))
	})

	t.Run("appointment with package", func(t *testing.T) {
		f := newFixture()
		appt := pendingAppointment()
		appt.ServicePackageID = ptr.Ptr(int64(5))
		f.appointments.On("GetByIDForUpdate", mock.Anything, int64(10)).Return(appt, nil)

		_, err := f.service.RecordPayment(context.Background(), &PaymentRequest{
			AppointmentID: 10, Amount: decimal.RequireFromString("75"), Method: domain.PaymentCash,
		})

		assert.ErrorIs(t, err, domain.ErrValidation)
		f.packages.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})
}

func TestService_List(t *testing.T) {
	today := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	t.Run("upcoming for user", func(t *testing.T) {
		f := newFixture()
		f.appointments.On("List", mock.Anything, domain.AppointmentListFilter{
			UserID: ptr.Ptr(int64(42)),
			From:   &today,
			Limit:  20,
		}).Return([]*domain.Appointment{pendingAppointment()}, nil)

		result, err := f.service.List(context.Background(), &ListRequest{
			UserID: ptr.Ptr(int64(42)), Upcoming: ptr.Ptr(true), Limit: 20,
		})

		require.NoError(t, err)
		assert.Len(t, result, 1)
		f.appointments.AssertExpectations(t)
	})

	t.Run("past for staff newest first", func(t *testing.T) {
		f := newFixture()
		status := domain.StatusCompleted
		f.appointments.On("List", mock.Anything, domain.AppointmentListFilter{
			StaffID:    ptr.Ptr(int64(1)),
			Status:     &status,
			Before:     &today,
			Descending: true,
		}).Return([]*domain.Appointment{}, nil)

		_, err := f.service.List(context.Background(), &ListRequest{
			StaffID: ptr.Ptr(int64(1)), Status: ptr.Ptr("completed"), Upcoming: ptr.Ptr(false),
		})

		require.NoError(t, err)
		f.appointments.AssertExpectations(t)
	})

	t.Run("filter required", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.List(context.Background(), &ListRequest{Upcoming: ptr.Ptr(true)})

		assert.ErrorIs(t, err, domain.ErrValidation)
		f.appointments.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.List(context.Background(), &ListRequest{
			Date: &apptDate, Status: ptr.Ptr("archived"),
		})

		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
