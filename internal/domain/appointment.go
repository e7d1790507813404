package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// transitions is the complete set of legal edges; terminal states have none.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: nil,
	StatusCancelled: nil,
	StatusNoShow:    nil,
}

// ParseAppointmentStatus validates a raw status value
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	status := AppointmentStatus(s)
	if _, ok := transitions[status]; !ok {
		return "", NewValidationError("status", "unknown status "+s)
	}
	return status, nil
}

// IsTerminal reports whether no further transitions are possible
func (s AppointmentStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsBlocking reports whether an appointment in this status occupies staff and service time
func (s AppointmentStatus) IsBlocking() bool {
	for _, b := range BlockingStatuses {
		if b == s {
			return true
		}
	}
	return false
}

// CheckTransition returns an InvalidTransitionError unless from→to is in the transition table.
func CheckTransition(from, to AppointmentStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// Appointment represents a booked visit
type Appointment struct {
	ID               int64
	ServiceID        int64
	StaffID          *int64 // nil until assigned
	UserID           *int64 // nil for guest bookings
	ServicePackageID *int64
	Date             time.Time
	StartTime        types.TimeString
	DurationMinutes  int             // snapshot from the service at booking time
	Price            decimal.Decimal // snapshot from the service at booking time
	Status           AppointmentStatus
	ReferenceCode    string

	CustomerName  *string
	CustomerPhone *string
	CustomerEmail *string
	Notes         *string
	AdminNotes    *string

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Interval returns the [start, end) occupied range on the appointment date in loc.
func (a *Appointment) Interval(loc *time.Location) types.Interval {
	date := time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, loc)
	return types.NewInterval(a.StartTime.On(date), a.DurationMinutes)
}

// EndTime returns the wall-clock end of the appointment
func (a *Appointment) EndTime() (types.TimeString, error) {
	return a.StartTime.AddMinutes(a.DurationMinutes)
}

// IsDeleted reports soft deletion
func (a *Appointment) IsDeleted() bool {
	return a.DeletedAt != nil
}

// HasStaff reports whether a staff member is assigned
func (a *Appointment) HasStaff() bool {
	return a.StaffID != nil
}

// DayAppointmentsFilter selects same-day appointments that can collide with a candidate.
// Service and staff conditions are OR-ed: a row matches if it shares either resource.
type DayAppointmentsFilter struct {
	Date      time.Time
	ServiceID *int64
	StaffIDs  []int64
	ExcludeID *int64
}

// AppointmentListFilter selects appointments of a customer, a staff member or a day.
// From and Before bound the appointment date as [From, Before).
type AppointmentListFilter struct {
	UserID     *int64
	StaffID    *int64
	Date       *time.Time
	Status     *AppointmentStatus
	From       *time.Time
	Before     *time.Time
	Descending bool
	Limit      int
	Offset     int
}

// OverlapQuery candidate booking checked by the conflict guard
type OverlapQuery struct {
	Date                time.Time
	StartTime           types.TimeString
	DurationMinutes     int
	ServiceID           int64
	StaffID             *int64
	IgnoreAppointmentID *int64

	// SkipLock resources of the day are already locked by the caller through Guard.LockDay
	SkipLock bool
}
