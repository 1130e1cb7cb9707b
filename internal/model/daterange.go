package model

import (
	"errors"
	"time"
)

// DateLayout is the wire format for stay dates.
const DateLayout = "2006-01-02"

var (
	ErrEmptyRange    = errors.New("checkOut must be after checkIn")
	ErrInvalidLayout = errors.New("dates must use YYYY-MM-DD")
)

// DateRange is a half-open stay [CheckIn, CheckOut) measured in whole days.
// Touching ranges do not overlap, which allows same-day turnover.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDateRange normalises both ends to UTC days and rejects zero-length or
// inverted stays.
func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	r := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if !r.CheckIn.Before(r.CheckOut) {
		return DateRange{}, ErrEmptyRange
	}
	return r, nil
}

// ParseDateRange parses two YYYY-MM-DD strings.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return DateRange{}, ErrInvalidLayout
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return DateRange{}, ErrInvalidLayout
	}
	return NewDateRange(in, out)
}

// Overlaps applies the half-open test a.in < b.out && a.out > b.in.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.CheckIn.Before(o.CheckOut) && r.CheckOut.After(o.CheckIn)
}

// Nights is the number of nights in the stay.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}
