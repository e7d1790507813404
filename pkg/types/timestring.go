package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout canonical wall-clock layout stored in the database.
const TimeLayout = "15:04:05"

const secondsPerDay = 24 * 60 * 60

var (
	// ErrInvalidTimeString is returned when a value cannot be parsed as HH:MM or HH:MM:SS
	ErrInvalidTimeString = errors.New("types: invalid time string")

	// ErrTimeOverflow is returned when arithmetic leaves the 00:00:00-23:59:59 range
	ErrTimeOverflow = errors.New("types: time out of day range")
)

// TimeString is a wall-clock time of day normalized to HH:MM:SS.
// The zero value means "not set".
type TimeString string

// NewTimeString takes the wall-clock part of t.
func NewTimeString(t time.Time) TimeString {
	return TimeString(t.Format(TimeLayout))
}

// NewTimeStringFromString parses "HH:MM" or "HH:MM:SS" and normalizes to HH:MM:SS.
func NewTimeStringFromString(s string) (TimeString, error) {
	seconds, err := parseSeconds(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return fromSeconds(seconds), nil
}

// MustTimeString is NewTimeStringFromString for constants and tests.
func MustTimeString(s string) TimeString {
	ts, err := NewTimeStringFromString(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func parseSeconds(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeString, s)
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeString, s)
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeString, s)
		}
		values[i] = v
	}

	return values[0]*3600 + values[1]*60 + values[2], nil
}

func fromSeconds(seconds int) TimeString {
	return TimeString(fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60))
}

// Seconds returns seconds since midnight, or -1 for an invalid value.
func (t TimeString) Seconds() int {
	seconds, err := parseSeconds(string(t))
	if err != nil {
		return -1
	}
	return seconds
}

// Minutes returns whole minutes since midnight.
func (t TimeString) Minutes() int {
	return t.Seconds() / 60
}

// AddMinutes shifts the time by the given minutes. Crossing midnight is an error.
func (t TimeString) AddMinutes(minutes int) (TimeString, error) {
	seconds, err := parseSeconds(string(t))
	if err != nil {
		return "", err
	}
	result := seconds + minutes*60
	if result < 0 || result >= secondsPerDay {
		return "", fmt.Errorf("%w: %s %+d min", ErrTimeOverflow, t, minutes)
	}
	return fromSeconds(result), nil
}

// IsBefore reports whether t is strictly earlier than other
func (t TimeString) IsBefore(other TimeString) bool {
	return t.Seconds() < other.Seconds()
}

// IsAfter reports whether t is strictly later than other
func (t TimeString) IsAfter(other TimeString) bool {
	return t.Seconds() > other.Seconds()
}

// Equal compares normalized values.
func (t TimeString) Equal(other TimeString) bool {
	return t.Seconds() == other.Seconds()
}

// IsZero reports whether the value is unset
func (t TimeString) IsZero() bool {
	return t == ""
}

// Validate checks the canonical HH:MM:SS form.
func (t TimeString) Validate() error {
	_, err := parseSeconds(string(t))
	return err
}

// String returns the HH:MM:SS representation
func (t TimeString) String() string {
	return string(t)
}

// On places the time of day on the calendar day of date, in date's location.
func (t TimeString) On(date time.Time) time.Time {
	y, m, d := date.Date()
	seconds := t.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	return time.Date(y, m, d, seconds/3600, (seconds%3600)/60, seconds%60, 0, date.Location())
}

// Scan implements sql.Scanner. lib/pq hands TIME columns over as time.Time or text.
func (t *TimeString) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = ""
		return nil
	case time.Time:
		*t = NewTimeString(v)
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidTimeString, src)
	}
}

func (t *TimeString) scanString(s string) error {
	// TIME columns may carry fractional seconds
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		s = s[:idx]
	}
	parsed, err := NewTimeStringFromString(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer.
func (t TimeString) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return string(t), nil
}

// UnmarshalJSON accepts "HH:MM" and "HH:MM:SS".
func (t *TimeString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimeString, err)
	}
	if s == "" {
		*t = ""
		return nil
	}
	parsed, err := NewTimeStringFromString(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
