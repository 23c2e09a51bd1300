package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date literal used on the command line and in storage.
const DateLayout = "2006-01-02"

var (
	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrMalformedDate    = errors.New("malformed date")
)

// EventKind is the seasonal category of a lunch
type EventKind string

const (
	Easter    EventKind = "easter"
	Christmas EventKind = "christmas"
)

// EventKinds lists the supported kinds in display order.
var EventKinds = []EventKind{Easter, Christmas}

// ParseEventKind accepts "easter" or "christmas" in any case.
func ParseEventKind(raw string) (EventKind, error) {
	normalized := EventKind(strings.ToLower(strings.TrimSpace(raw)))
	for _, k := range EventKinds {
		if k == normalized {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w %q: expected one of easter, christmas", ErrUnknownEventKind, raw)
}

func (k EventKind) String() string {
	return string(k)
}

// Interval returns the half-open date range [From, To) in which a lunch of
// this kind is expected for the given year. Christmas wraps into the next year.
func (k EventKind) Interval(year int) (DateRange, error) {
	switch k {
	case Easter:
		return DateRange{
			From: date(year, time.March, 1),
			To:   date(year, time.September, 1),
		}, nil
	case Christmas:
		return DateRange{
			From: date(year, time.November, 1),
			To:   date(year+1, time.March, 1),
		}, nil
	}
	return DateRange{}, fmt.Errorf("%w %q", ErrUnknownEventKind, string(k))
}

// DateRange is a half-open calendar date interval.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls in [From, To).
func (r DateRange) Contains(d time.Time) bool {
	d = TruncateDate(d)
	return !d.Before(r.From) && d.Before(r.To)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.From.Format(DateLayout), r.To.Format(DateLayout))
}

// SeasonOf classifies a date: March through August is Easter, the rest is Christmas.
func SeasonOf(d time.Time) EventKind {
	if m := d.Month(); m >= time.March && m < time.September {
		return Easter
	}
	return Christmas
}

// ParseDate parses a YYYY-MM-DD literal.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: given date (%s) not valid, expected format YYYY-MM-DD", ErrMalformedDate, raw)
	}
	return d, nil
}

// TruncateDate drops the clock part and location of t.
func TruncateDate(t time.Time) time.Time {
	return date(t.Year(), t.Month(), t.Day())
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
