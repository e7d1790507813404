package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-ClinicService/pkg/types"
)

// SchedulingConfig resolved clinic settings consumed by the booking core.
// It is built once at startup from the [clinic] config section.
type SchedulingConfig struct {
	Location         *time.Location
	WorkdayStart     types.TimeString
	WorkdayEnd       types.TimeString
	SlotStepMinutes  int
	MinNoticeMinutes int
	DefaultCurrency  string
	AllowPastDates   bool
}

// DefaultSchedulingConfig returns the built-in clinic defaults in UTC
func DefaultSchedulingConfig() SchedulingConfig {
	return SchedulingConfig{
		Location:         time.UTC,
		WorkdayStart:     types.MustTimeString(DefaultWorkdayStart),
		WorkdayEnd:       types.MustTimeString(DefaultWorkdayEnd),
		SlotStepMinutes:  DefaultSlotStepMinutes,
		MinNoticeMinutes: DefaultMinNoticeMinutes,
		DefaultCurrency:  DefaultCurrency,
	}
}

// DateIn places the calendar day of t at midnight in the clinic timezone
func (c SchedulingConfig) DateIn(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location)
}

// PaymentEpsilonAmount tolerance used when comparing payments to the package price
var PaymentEpsilonAmount = decimal.RequireFromString(PaymentEpsilon)
