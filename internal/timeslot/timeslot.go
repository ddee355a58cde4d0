// Package timeslot provides the pure time-of-day arithmetic shared by event
// validation and the grid projector. Times are naive local clock values with
// no timezone component.
package timeslot

import (
	"errors"
	"fmt"
	"regexp"
)

// timePattern accepts zero-padded 24-hour clock strings such as "09:30".
var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

var (
	// ErrMalformedTime is returned when a string is not a valid HH:MM value.
	ErrMalformedTime = errors.New("timeslot: time must be a zero-padded 24-hour HH:MM value")
	// ErrInvertedRange is returned when a start time does not strictly precede its end time.
	ErrInvertedRange = errors.New("timeslot: end time must be after start time")
)

// Clock is a naive time of day.
type Clock struct {
	Hour   int
	Minute int
}

// Parse validates and decomposes an HH:MM string.
func Parse(s string) (Clock, error) {
	if !timePattern.MatchString(s) {
		return Clock{}, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[3]-'0')*10 + int(s[4]-'0')
	return Clock{Hour: hour, Minute: minute}, nil
}

// Minutes returns the clock value as minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// String renders the clock back to zero-padded HH:MM form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ValidateOrdering parses both strings and checks that start strictly precedes
// end. Zero-length and overnight-spanning ranges are rejected.
func ValidateOrdering(start, end string) error {
	s, err := Parse(start)
	if err != nil {
		return err
	}
	e, err := Parse(end)
	if err != nil {
		return err
	}
	if s.Minutes() >= e.Minutes() {
		return fmt.Errorf("%w (%s >= %s)", ErrInvertedRange, start, end)
	}
	return nil
}

// PositionInGrid computes the vertical pixel offset of a clock value inside a
// timeline that begins at gridStartHour. Layout arithmetic only; callers are
// responsible for validation.
func PositionInGrid(c Clock, gridStartHour int, pxPerHour float64) float64 {
	return (float64(c.Minutes()) - float64(gridStartHour*60)) / 60.0 * pxPerHour
}
