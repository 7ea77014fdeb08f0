package slot

import (
	"errors"
	"testing"
	"time"
)

func TestParse_CanonicalForm(t *testing.T) {
	p, err := Parse("2024-6-1-9:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.HasDate {
		t.Error("expected HasDate to be true")
	}
	if p.Year != 2024 || p.Month != 6 || p.Day != 1 {
		t.Errorf("unexpected date: %d-%d-%d", p.Year, p.Month, p.Day)
	}
	if p.Hour != 9 || p.Minute != 30 {
		t.Errorf("unexpected time: %d:%d", p.Hour, p.Minute)
	}
}

func TestParse_ZeroPaddedForm(t *testing.T) {
	p, err := Parse("2024-06-01-09:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Year != 2024 || p.Month != 6 || p.Day != 1 || p.Hour != 9 || p.Minute != 0 {
		t.Errorf("unexpected parse result: %+v", p)
	}
}

func TestParse_LegacyTimeOnly(t *testing.T) {
	p, err := Parse("09:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HasDate {
		t.Error("expected HasDate to be false for legacy form")
	}
	if p.Hour != 9 || p.Minute != 0 {
		t.Errorf("unexpected time: %d:%d", p.Hour, p.Minute)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"",
		"not-a-slot",
		"2024-xx-01-09:00",
		"2024-06-01-9am",
		"2024-06-01-123:00",
		"banana",
		"9:0",
	}

	for _, raw := range cases {
		if _, err := Parse(raw); !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q): expected ErrInvalid, got %v", raw, err)
		}
	}
}

func TestInstant_LegacyResolvesToToday(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	instant, err := Instant("09:00", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	if !instant.Equal(want) {
		t.Errorf("expected %v, got %v", want, instant)
	}
}

func TestIsPast(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want bool
	}{
		{"2024-06-01-09:00", true},
		{"2024-06-01-13:00", false},
		{"2024-05-31-23:59", true},
		{"2025-01-01-00:00", false},
		{"09:00", true},  // legacy, this morning
		{"13:00", false}, // legacy, later today
		{"garbage", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsPast(tt.raw, now); got != tt.want {
			t.Errorf("IsPast(%q): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-6-1-9:00", "Jun 1, 2024 at 9:00 AM"},
		{"2024-12-25-14:30", "Dec 25, 2024 at 2:30 PM"},
		{"2024-06-01-00:15", "Jun 1, 2024 at 12:15 AM"},
		{"09:00", "09:00"},      // legacy form stays raw
		{"garbage", "garbage"},  // parse failure stays raw
	}

	for _, tt := range tests {
		if got := Format(tt.raw); got != tt.want {
			t.Errorf("Format(%q): expected %q, got %q", tt.raw, tt.want, got)
		}
	}
}

func TestFormat_RoundTripsCalendarDate(t *testing.T) {
	raw := "2024-6-1-15:45"

	formatted := Format(raw)
	reparsed, err := time.Parse("Jan 2, 2006 at 3:04 PM", formatted)
	if err != nil {
		t.Fatalf("formatted output %q did not reparse: %v", formatted, err)
	}

	p, _ := Parse(raw)
	if reparsed.Year() != p.Year || int(reparsed.Month()) != p.Month || reparsed.Day() != p.Day {
		t.Errorf("calendar date changed through formatting: %v vs %+v", reparsed, p)
	}
	if reparsed.Hour() != p.Hour || reparsed.Minute() != p.Minute {
		t.Errorf("clock time changed through formatting: %v vs %+v", reparsed, p)
	}
}

func TestID(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := ID(date, "10:00"); got != "2024-06-01-10:00" {
		t.Errorf("expected 2024-06-01-10:00, got %s", got)
	}
}
