package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [checkIn, checkOut)
type DateRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Must panics on an invalid range; fixtures and tests only.
func Must(checkIn, checkOut time.Time) DateRange {
	dr, err := New(checkIn, checkOut)
	if err != nil {
		panic(err)
	}
	return dr
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts calendar nights between the check-in and check-out dates.
func (dr DateRange) Nights() int {
	return int(truncateDay(dr.CheckOut).Sub(truncateDay(dr.CheckIn)) / day)
}

func (dr DateRange) Duration() time.Duration {
	return dr.CheckOut.Sub(dr.CheckIn)
}

func (dr DateRange) Equal(other DateRange) bool {
	return dr.CheckIn.Equal(other.CheckIn) && dr.CheckOut.Equal(other.CheckOut)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(dr.CheckIn) || t.After(dr.CheckIn)) && t.Before(dr.CheckOut)
}

// Started reports whether now is at or past the check-in instant.
func (dr DateRange) Started(now time.Time) bool {
	return !now.Before(dr.CheckIn)
}

// Ended reports whether now is at or past the check-out instant.
func (dr DateRange) Ended(now time.Time) bool {
	return !now.Before(dr.CheckOut)
}

// Until returns the time left before check-in (negative once started).
func (dr DateRange) Until(now time.Time) time.Duration {
	return dr.CheckIn.Sub(now)
}

// Remaining returns the part of the range still ahead of now, clipped to the range.
func (dr DateRange) Remaining(now time.Time) (DateRange, bool) {
	if dr.Ended(now) {
		return DateRange{}, false
	}
	if !dr.Started(now) {
		return dr, true
	}
	return DateRange{CheckIn: now.UTC(), CheckOut: dr.CheckOut}, true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
