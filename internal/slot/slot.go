// Package slot parses and formats the canonical bookable-slot identifier.
//
// The canonical form is "YYYY-M-D-HH:MM" (month 1-based, zero padding not
// required). A legacy form without a date component, bare "HH:MM", still
// parses and is treated as today.
package slot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid slot")

var timePattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// Parsed is one decoded slot identifier. When HasDate is false the slot
// carried only a wall-clock time and resolves against the current day.
type Parsed struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	HasDate bool
}

func Parse(raw string) (Parsed, error) {
	if raw == "" {
		return Parsed{}, fmt.Errorf("%w: empty", ErrInvalid)
	}

	parts := strings.Split(raw, "-")
	if len(parts) >= 4 {
		year, errY := strconv.Atoi(parts[0])
		month, errM := strconv.Atoi(parts[1])
		day, errD := strconv.Atoi(parts[2])
		if errY != nil || errM != nil || errD != nil {
			return Parsed{}, fmt.Errorf("%w: non-numeric date in %q", ErrInvalid, raw)
		}

		hhmm := strings.Join(parts[3:], "-")
		hour, minute, err := parseTime(hhmm)
		if err != nil {
			return Parsed{}, fmt.Errorf("%w: bad time in %q", ErrInvalid, raw)
		}

		return Parsed{
			Year:    year,
			Month:   month,
			Day:     day,
			Hour:    hour,
			Minute:  minute,
			HasDate: true,
		}, nil
	}

	hour, minute, err := parseTime(raw)
	if err != nil {
		return Parsed{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	return Parsed{
		Hour:   hour,
		Minute: minute,
	}, nil
}

func parseTime(hhmm string) (int, int, error) {
	if !timePattern.MatchString(hhmm) {
		return 0, 0, ErrInvalid
	}
	sep := strings.IndexByte(hhmm, ':')
	hour, _ := strconv.Atoi(hhmm[:sep])
	minute, _ := strconv.Atoi(hhmm[sep+1:])
	return hour, minute, nil
}

// Instant resolves a slot to a concrete point in time. Legacy slots without
// a date component resolve to now's calendar day.
func Instant(raw string, now time.Time) (time.Time, error) {
	p, err := Parse(raw)
	if err != nil {
		return time.Time{}, err
	}

	if !p.HasDate {
		return time.Date(now.Year(), now.Month(), now.Day(), p.Hour, p.Minute, 0, 0, now.Location()), nil
	}

	return time.Date(p.Year, time.Month(p.Month), p.Day, p.Hour, p.Minute, 0, 0, now.Location()), nil
}

// IsPast reports whether the slot's instant is before now. Invalid slots
// are never past, so sweeps cannot silently delete what they cannot read.
func IsPast(raw string, now time.Time) bool {
	instant, err := Instant(raw, now)
	if err != nil {
		return false
	}
	return instant.Before(now)
}

// Format renders a slot as "Jun 1, 2024 at 9:00 AM". Anything that does not
// parse, including the legacy dateless form, comes back as the raw string.
func Format(raw string) string {
	p, err := Parse(raw)
	if err != nil || !p.HasDate {
		return raw
	}

	t := time.Date(p.Year, time.Month(p.Month), p.Day, p.Hour, p.Minute, 0, 0, time.UTC)
	return t.Format("Jan 2, 2006 at 3:04 PM")
}

// ID builds the canonical identifier for a calendar date and HH:MM time.
func ID(date time.Time, hhmm string) string {
	return date.Format("2006-01-02") + "-" + hhmm
}
