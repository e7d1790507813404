package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// Service bookable catalog entry. Package services carry a sessions or minutes template.
type Service struct {
	ID              int64
	Name            string
	DurationMinutes int
	Price           decimal.Decimal
	IsActive        bool
	IsBookable      bool
	IsPackage       bool
	TotalSessions   *int
	TotalMinutes    *int
}

// CanBeBooked reports whether customers may book the service
func (s *Service) CanBeBooked() bool {
	return s.IsActive && s.IsBookable
}

// IsSessionsPackage reports whether bookings consume a sessions package
func (s *Service) IsSessionsPackage() bool {
	return s.IsPackage && s.TotalSessions != nil && *s.TotalSessions > 0
}

// PackageTemplate derives the initial balance for a new package of this service.
// Exactly one of TotalSessions / TotalMinutes must be set.
func (s *Service) PackageTemplate() (PackageBalance, error) {
	hasSessions := s.TotalSessions != nil && *s.TotalSessions > 0
	hasMinutes := s.TotalMinutes != nil && *s.TotalMinutes > 0

	switch {
	case hasSessions && hasMinutes:
		return PackageBalance{}, &InvariantViolationError{
			Entity: "service", ID: s.ID, Detail: "package template defines both sessions and minutes",
		}
	case hasSessions:
		return SessionsBalance(*s.TotalSessions, *s.TotalSessions), nil
	case hasMinutes:
		return MinutesBalance(*s.TotalMinutes, *s.TotalMinutes), nil
	default:
		return PackageBalance{}, NewValidationError("service_id", "service does not define a package template")
	}
}

// Staff clinic employee
type Staff struct {
	ID       int64
	Name     string
	IsActive bool
}

// WorkingWindow recurring weekly working hours of a staff member
type WorkingWindow struct {
	ID        int64
	StaffID   int64
	Weekday   int // 0 = Sunday
	StartTime types.TimeString
	EndTime   types.TimeString
	IsActive  bool
}

// TimeOffException date-specific absence. Nil bounds on both sides block the whole day.
type TimeOffException struct {
	ID        int64
	StaffID   int64
	Date      time.Time
	StartTime *types.TimeString
	EndTime   *types.TimeString
	Reason    *string
}

// IsFullDay reports whether the exception blocks the entire day
func (t *TimeOffException) IsFullDay() bool {
	return t.StartTime == nil && t.EndTime == nil
}

// Slot bookable start time returned by the slot generator
type Slot struct {
	StartTime       types.TimeString
	EndTime         types.TimeString
	DurationMinutes int
	FreeStaff       int // eligible staff members able to take the slot
}
