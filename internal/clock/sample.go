package clock

import (
	"strconv"
	"strings"
	"time"
)

// TimeSample is the set of wall-clock fields the screens render. It is
// recomputed on every read and never stored across task invocations.
type TimeSample struct {
	Hour    int
	Minute  int
	Second  int
	Day     int
	Month   time.Month
	Weekday time.Weekday
}

// Sample extracts display fields from t.
func Sample(t time.Time) TimeSample {
	h, m, s := t.Clock()
	return TimeSample{
		Hour:    h,
		Minute:  m,
		Second:  s,
		Day:     t.Day(),
		Month:   t.Month(),
		Weekday: t.Weekday(),
	}
}

// TwoDigit formats n zero-padded to at least two digits.
func TwoDigit(n int) string {
	if n >= 0 && n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// MonthAbbrev returns the 3-letter uppercase month, e.g. "FEB".
func MonthAbbrev(m time.Month) string {
	return abbrev(m.String())
}

// WeekdayAbbrev returns the 3-letter uppercase weekday, e.g. "SUN".
func WeekdayAbbrev(d time.Weekday) string {
	return abbrev(d.String())
}

func abbrev(name string) string {
	if len(name) > 3 {
		name = name[:3]
	}
	return strings.ToUpper(name)
}
