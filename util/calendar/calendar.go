package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Layout of every persisted date (yyyy-MM-dd).
const Layout = "2006-01-02"

var ErrDate = errors.New("calendar: malformed date")

// Date returns the calendar date at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate keeps the calendar date of t as seen in its own location
// and drops the clock, so day arithmetic never meets a DST shift.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

func Today() time.Time {
	return Truncate(time.Now())
}

func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDate, s)
	}
	return t, nil
}

func Format(t time.Time) string {
	return Truncate(t).Format(Layout)
}

func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func DaysInYear(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

// DayOfReadingYear returns the 1-based position of current within the
// reading year that began on start. The start date itself is day 1.
//
// When current lies in a later calendar year the rest of the start year
// is walked first, then every full year in between, then current's own
// day of year. A current date before start gives 1 minus the number of
// days between them (0 for the day before start, -1 the day before that).
func DayOfReadingYear(start, current time.Time) int {
	s, c := Truncate(start), Truncate(current)
	switch {
	case c.Year() == s.Year():
		return c.YearDay() - s.YearDay() + 1
	case c.Year() > s.Year():
		n := DaysInYear(s.Year()) - s.YearDay()
		for y := s.Year() + 1; y < c.Year(); y++ {
			n += DaysInYear(y)
		}
		return n + c.YearDay() + 1
	default:
		return 2 - DayOfReadingYear(c, s)
	}
}

// IsYearValid reports whether a book restricted to validYear may be read
// this calendar year. Zero means any year.
func IsYearValid(validYear int) bool {
	return IsYearValidAt(validYear, time.Now())
}

func IsYearValidAt(validYear int, now time.Time) bool {
	return validYear == 0 || validYear == now.Year()
}

// InRange reports whether date lies within [start, end], both ends inclusive.
func InRange(date, start, end time.Time) bool {
	d, s, e := Truncate(date), Truncate(start), Truncate(end)
	if d.Equal(s) || d.Equal(e) {
		return true
	}
	return d.After(s) && d.Before(e)
}
