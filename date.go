package odx

import (
	"fmt"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	// J2000JD is the Julian date of the J2000 reference epoch.
	J2000JD = 2451545.0
	// secondsPerDay converts Julian date fractions.
	secondsPerDay = 86400.0
)

// Date is a point on a continuous time axis, stored as an offset in
// seconds from the J2000 reference epoch. Subtraction is exact to the
// float64 representation of the offsets.
type Date struct {
	secs float64
}

// J2000 is the reference epoch itself.
var J2000 = Date{0}

// NewDate returns the date at the given offset in seconds past J2000.
func NewDate(secs float64) Date {
	return Date{secs}
}

// NewDateFromTime converts a civil time to a Date. The time is read in
// UTC and no time scale offset is applied, so J2000 corresponds to
// 2000-01-01T12:00:00 UTC.
func NewDateFromTime(t time.Time) Date {
	return Date{(julian.TimeToJD(t.UTC()) - J2000JD) * secondsPerDay}
}

// Shift returns the date moved by the given number of seconds, which
// may be negative.
func (d Date) Shift(secs float64) Date {
	return Date{d.secs + secs}
}

// Sub returns the signed duration d - o in seconds.
func (d Date) Sub(o Date) float64 {
	return d.secs - o.secs
}

// Before returns whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.secs < o.secs
}

// After returns whether d is strictly after o.
func (d Date) After(o Date) bool {
	return d.secs > o.secs
}

// Equal returns whether both dates are the same instant.
func (d Date) Equal(o Date) bool {
	return d.secs == o.secs
}

// JD returns the Julian date.
func (d Date) JD() float64 {
	return J2000JD + d.secs/secondsPerDay
}

// Time returns the civil UTC time of this date.
func (d Date) Time() time.Time {
	return julian.JDToTime(d.JD()).UTC()
}

// String implements the Stringer interface.
func (d Date) String() string {
	return fmt.Sprintf("%s (J2000%+.3fs)", d.Time().Format("2006-01-02 15:04:05.000"), d.secs)
}
