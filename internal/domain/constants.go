package domain

// Default scheduling configuration values
const (
	DefaultWorkdayStart     = "10:00:00"
	DefaultWorkdayEnd       = "19:00:00"
	DefaultSlotStepMinutes  = 15
	DefaultMinNoticeMinutes = 30
	DefaultCurrency         = "EUR"
	DefaultTimezone         = "UTC"
)

// Business validation constants
const (
	MaxNotesLength             = 2000
	MaxNoteLength              = 500
	MaxDurationMinutes         = 24 * 60
	MaxReferenceAttempts       = 5
	MaxMinNoticeMinutes        = 10080 // 1 week
	DefaultLogsPerPage         = 20
	MaxLogsPerPage             = 100
	DefaultAppointmentsPerPage = 50
	MaxAppointmentsPerPage     = 200
	PaymentEpsilon             = "0.01"
	CurrencyCodeLength         = 3
	SessionsPerAppointment     = 1
)

// AllowedStepMinutes slot step granularities accepted by the slot generator
var AllowedStepMinutes = []int{5, 10, 15, 20, 30, 60}

// Time format constants
const (
	TimeFormat = "15:04:05"   // HH:MM:SS
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// BlockingStatuses statuses that occupy staff and service time
var BlockingStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusCompleted,
}

// NonBlockingStatuses statuses that never participate in overlap checks
var NonBlockingStatuses = []AppointmentStatus{
	StatusCancelled,
	StatusNoShow,
}

// IsAllowedStep reports whether step is one of AllowedStepMinutes
func IsAllowedStep(step int) bool {
	for _, s := range AllowedStepMinutes {
		if s == step {
			return true
		}
	}
	return false
}
