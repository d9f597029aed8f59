// Package schedule derives the calendar and dashboard views of a project from
// its assignments and events. Nothing in here touches the store: every
// function works on records that were already fetched, plus an explicit "now".
package schedule

import (
	"fmt"
	"strings"
	"time"

	"kyri56xcaesar/capstone-pms/internal/domain"
)

const (
	DateLayout          = time.DateOnly
	ClockLayout         = "15:04"
	LocalDateTimeLayout = "2006-01-02T15:04:05"
)

var (
	// Z07:00 matches both a trailing Z and a numeric offset.
	zonedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04Z07:00"}
	localLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04"}
)

// Normalizer turns user supplied date/time text into instants of one fixed
// reference zone.
type Normalizer struct {
	zone *time.Location
}

func NewNormalizer(zone *time.Location) Normalizer {
	if zone == nil {
		zone = time.UTC
	}
	return Normalizer{zone: zone}
}

// LoadNormalizer resolves an IANA zone name such as "Asia/Seoul".
func LoadNormalizer(zoneName string) (Normalizer, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return Normalizer{}, fmt.Errorf("load time zone %q: %w", zoneName, err)
	}
	return NewNormalizer(loc), nil
}

func (n Normalizer) Zone() *time.Location {
	if n.zone == nil {
		return time.UTC
	}
	return n.zone
}

// DueDate parses an assignment due date. A bare date means "by the end of
// that day" and resolves to 23:59.
func (n Normalizer) DueDate(raw string) (*time.Time, error) {
	return n.parse(raw, 23, 59)
}

// EventTime parses an event start or end. A bare date means "begins at" and
// resolves to 00:00.
func (n Normalizer) EventTime(raw string) (*time.Time, error) {
	return n.parse(raw, 0, 0)
}

// Date parses any accepted format and keeps only the calendar day, at
// midnight in the reference zone.
func (n Normalizer) Date(raw string) (*time.Time, error) {
	t, err := n.parse(raw, 0, 0)
	if err != nil || t == nil {
		return t, err
	}
	d := n.StartOfDay(*t)
	return &d, nil
}

func (n Normalizer) StartOfDay(t time.Time) time.Time {
	t = t.In(n.Zone())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, n.Zone())
}

// parse returns nil for blank input. The formats are tried in a fixed order:
// UTC instant, explicit offset, local date-time, bare date.
func (n Normalizer) parse(raw string, hour, minute int) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	zone := n.Zone()

	if last := s[len(s)-1]; last == 'Z' || last == 'z' {
		if t, ok := tryLayouts(zonedLayouts, s[:len(s)-1]+"Z"); ok {
			t = t.In(zone)
			return &t, nil
		}
	}
	if t, ok := tryLayouts(zonedLayouts, s); ok {
		t = t.In(zone)
		return &t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, zone); err == nil {
			return &t, nil
		}
	}
	if d, err := time.ParseInLocation(DateLayout, s, zone); err == nil {
		t := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, zone)
		return &t, nil
	}

	return nil, fmt.Errorf("%w: %q", domain.ErrMalformedTimestamp, raw)
}

// isBareDate reports whether raw is a plain YYYY-MM-DD with no time of day.
func isBareDate(raw string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	return err == nil
}

func tryLayouts(layouts []string, s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders the calendar day of t in the reference zone.
func (n Normalizer) FormatDate(t time.Time) string {
	return t.In(n.Zone()).Format(DateLayout)
}

// FormatClock renders the time of day of t in the reference zone.
func (n Normalizer) FormatClock(t time.Time) string {
	return t.In(n.Zone()).Format(ClockLayout)
}

// FormatLocal renders t as a zone-less local date-time.
func (n Normalizer) FormatLocal(t time.Time) string {
	return t.In(n.Zone()).Format(LocalDateTimeLayout)
}
