// Package schedule resolves wall-clock time and the fixed daily grid of
// hourly slots in the venue's time zone.
package schedule

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Schedule converts (date, hour label) pairs into absolute instants and
// enumerates the bookable hours of a day. It has no mutable state; the
// clock function is injectable for tests.
type Schedule struct {
	loc       *time.Location
	openHour  int
	closeHour int
	now       func() time.Time
}

// New creates a Schedule for the given IANA time zone and open/close hours.
// Hours are bookable in [openHour, closeHour).
func New(timezone string, openHour, closeHour int) (*Schedule, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Schedule{
		loc:       loc,
		openHour:  openHour,
		closeHour: closeHour,
		now:       time.Now,
	}, nil
}

// WithNow returns a copy using the given clock. Used in tests.
func (s *Schedule) WithNow(now func() time.Time) *Schedule {
	c := *s
	c.now = now
	return &c
}

// Now returns the current instant in the configured time zone.
func (s *Schedule) Now() time.Time {
	return s.now().In(s.loc)
}

// Today returns the current civil date formatted as YYYY-MM-DD.
func (s *Schedule) Today() string {
	return s.Now().Format(DateLayout)
}

// DateFrom returns the civil date days ahead of today.
func (s *Schedule) DateFrom(days int) string {
	return s.Now().AddDate(0, 0, days).Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD date string.
func (s *Schedule) ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// SlotStart returns the absolute start instant of the slot at (date, hour)
// interpreted in the configured time zone.
func (s *Schedule) SlotStart(date, hour string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" 15:04", date+" "+hour, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %q %q: %w", date, hour, err)
	}
	return t, nil
}

// HourLabels returns the ordered hour labels of one day, zero-padded HH:00.
// Empty when closeHour <= openHour.
func (s *Schedule) HourLabels() []string {
	if s.closeHour <= s.openHour {
		return nil
	}
	labels := make([]string, 0, s.closeHour-s.openHour)
	for h := s.openHour; h < s.closeHour; h++ {
		labels = append(labels, fmt.Sprintf("%02d:00", h))
	}
	return labels
}

// IsValidHour reports whether hour is one of the day's hour labels.
func (s *Schedule) IsValidHour(hour string) bool {
	for _, h := range s.HourLabels() {
		if h == hour {
			return true
		}
	}
	return false
}

// IsFuture reports whether the slot's start time is still ahead of now.
// Slots whose start has passed are neither bookable nor cancelable.
func (s *Schedule) IsFuture(date, hour string) bool {
	start, err := s.SlotStart(date, hour)
	if err != nil {
		return false
	}
	return s.Now().Before(start)
}
