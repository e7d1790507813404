package clock

import "time"

// Location reports the current time in a fixed clinic timezone.
// The zone is carried by the value, never set process-wide.
type Location struct {
	loc *time.Location
}

// NewLocation loads an IANA zone such as "Europe/Berlin".
func NewLocation(name string) (*Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return &Location{loc: loc}, nil
}

// Now returns the current wall-clock time in the clinic zone
func (c *Location) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the clinic zone
func (c *Location) Location() *time.Location {
	return c.loc
}

// Fixed always reports the same instant. Used in tests.
type Fixed struct {
	At time.Time
}

// Now returns the fixed instant
func (f Fixed) Now() time.Time {
	return f.At
}

// DateOnly keeps the calendar day of t as written and places it at midnight in loc.
// t is not converted: DATE columns arrive as UTC midnight.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
