package usecasetest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/internal/domain"
	"github.com/m04kA/SMC-ClinicService/internal/service/calendar"
	"github.com/m04kA/SMC-ClinicService/internal/service/conflicts"
	"github.com/m04kA/SMC-ClinicService/internal/service/packages"
	"github.com/m04kA/SMC-ClinicService/pkg/clock"
	"github.com/m04kA/SMC-ClinicService/pkg/metrics"
	"github.com/m04kA/SMC-ClinicService/pkg/ptr"
	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// Seeded catalog
const (
	ConsultationID int64 = 1 // 60 minutes, plain service
	LaserID        int64 = 2 // 30 minutes, 6-session package
	MassageID      int64 = 3 // 45 minutes, 300-minute package

	AnnaID  int64 = 10
	BorisID int64 = 11
	ClaraID int64 = 12 // inactive

	CustomerID int64 = 42
	AdminID    int64 = 1
)

var (
	// Monday day with working staff in the seeded clinic
	Monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	// LastWeek default clock, far enough before Monday for notice rules not to apply
	LastWeek = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
)

// Clinic in-memory clinic with two active therapists working Mon-Fri 09:00-17:00
type Clinic struct {
	Catalog      *Catalog
	Appointments *Appointments
	Logs         *Logs
	Packages     *Packages
	Clock        *clock.Fixed
	Config       domain.SchedulingConfig
	Calendars    *calendar.Loader
	Guard        *conflicts.Guard
	Ledger       *packages.Ledger
}

// NewClinic seeds the catalog and wires the real guard and ledger over in-memory storage
func NewClinic() *Clinic {
	cfg := domain.DefaultSchedulingConfig()
	cfg.WorkdayStart = types.MustTimeString("09:00")
	cfg.WorkdayEnd = types.MustTimeString("17:00")

	c := &Clinic{
		Catalog: &Catalog{
			Services: map[int64]*domain.Service{
				ConsultationID: {ID: ConsultationID, Name: "Consultation", DurationMinutes: 60, Price: decimal.RequireFromString("80.00"), IsActive: true, IsBookable: true},
				LaserID:        {ID: LaserID, Name: "Laser", DurationMinutes: 30, Price: decimal.RequireFromString("450.00"), IsActive: true, IsBookable: true, IsPackage: true, TotalSessions: ptr.Ptr(6)},
				MassageID:      {ID: MassageID, Name: "Massage", DurationMinutes: 45, Price: decimal.RequireFromString("300.00"), IsActive: true, IsBookable: true, IsPackage: true, TotalMinutes: ptr.Ptr(300)},
			},
			Staff: map[int64]*domain.Staff{
				AnnaID:  {ID: AnnaID, Name: "Anna", IsActive: true},
				BorisID: {ID: BorisID, Name: "Boris", IsActive: true},
				ClaraID: {ID: ClaraID, Name: "Clara", IsActive: false},
			},
			Capabilities: map[int64][]int64{
				ConsultationID: {AnnaID, BorisID, ClaraID},
				LaserID:        {AnnaID, BorisID},
				MassageID:      {BorisID},
			},
		},
		Appointments: NewAppointments(),
		Logs:         &Logs{},
		Packages:     NewPackages(),
		Clock:        &clock.Fixed{At: LastWeek},
		Config:       cfg,
	}

	windowID := int64(0)
	for _, staffID := range []int64{AnnaID, BorisID, ClaraID} {
		for weekday := 1; weekday <= 5; weekday++ {
			windowID++
			c.Catalog.Windows = append(c.Catalog.Windows, domain.WorkingWindow{
				ID:        windowID,
				StaffID:   staffID,
				Weekday:   weekday,
				StartTime: types.MustTimeString("09:00"),
				EndTime:   types.MustTimeString("17:00"),
				IsActive:  true,
			})
		}
	}

	log := DiscardLogger()
	c.Calendars = calendar.NewLoader(c.Catalog, log)
	c.Guard = conflicts.NewGuard(c.Appointments, cfg.Location, metrics.Noop{}, log)
	c.Ledger = packages.NewLedger(c.Packages, c.Catalog, Tx{}, c.Clock, metrics.Noop{}, log, cfg.DefaultCurrency)
	return c
}

// Book stores an appointment directly, bypassing the booking flow
func (c *Clinic) Book(serviceID, staffID int64, start string, status domain.AppointmentStatus) int64 {
	service := c.Catalog.Services[serviceID]
	return c.Appointments.Seed(domain.Appointment{
		ServiceID:       serviceID,
		StaffID:         ptr.Ptr(staffID),
		UserID:          ptr.Ptr(CustomerID),
		Date:            Monday,
		StartTime:       types.MustTimeString(start),
		DurationMinutes: service.DurationMinutes,
		Price:           service.Price,
		Status:          status,
		ReferenceCode:   fmt.Sprintf("SEED%06d", c.Appointments.Count()+1),
	})
}
