package timezone_test

import (
	"bengkel/shared/timezone"
	"testing"
	"time"
)

func TestTimezoneInit(t *testing.T) {
	// Test Now() function
	now := timezone.Now()
	if now.IsZero() {
		t.Error("Now() returned zero time")
	}

	// Test GetLocation()
	loc := timezone.GetLocation()
	if loc == nil {
		t.Error("GetLocation() returned nil")
	}
}

func TestTimezoneWithStandardLocation(t *testing.T) {
	utcTime := time.Now().UTC()
	appTime := timezone.ToAppTime(utcTime)

	if appTime.Location() == nil {
		t.Error("Expected converted time to have a location")
	}
}

func TestTimezoneFormat(t *testing.T) {
	testTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	formatted := timezone.Format(testTime, "2006-01-02 15:04:05 MST")

	if formatted == "" {
		t.Error("Format() returned empty string")
	}

	parsed, err := timezone.Parse("2006-01-02", "2024-01-01")
	if err != nil {
		t.Errorf("Parse() failed: %v", err)
	}

	if parsed == (time.Time{}) {
		t.Error("Parse() returned a zero time")
	}
}

func TestStartOfDay(t *testing.T) {
	input := time.Date(2026, 9, 10, 15, 42, 13, 500, timezone.GetLocation())
	start := timezone.StartOfDay(input)

	if start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 || start.Nanosecond() != 0 {
		t.Errorf("StartOfDay() did not truncate to midnight, got %v", start)
	}

	if start.Year() != 2026 || start.Month() != time.September || start.Day() != 10 {
		t.Errorf("StartOfDay() changed the date, got %v", start)
	}
}

func TestMinAvailableDate(t *testing.T) {
	minDate := timezone.MinAvailableDate()
	tomorrow := timezone.StartOfDay(timezone.Now()).AddDate(0, 0, 1)

	if !minDate.Equal(tomorrow) {
		t.Errorf("MinAvailableDate() = %v, expected start of tomorrow %v", minDate, tomorrow)
	}

	if !minDate.After(timezone.Now()) {
		t.Errorf("MinAvailableDate() = %v should be after now", minDate)
	}
}

func TestNormalizeDate(t *testing.T) {
	scanned := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	normalized := timezone.NormalizeDate(scanned)

	if normalized.Year() != 2026 || normalized.Month() != time.September || normalized.Day() != 10 {
		t.Errorf("NormalizeDate() changed the calendar date, got %v", normalized)
	}

	if normalized.Hour() != 0 || normalized.Minute() != 0 || normalized.Second() != 0 {
		t.Errorf("NormalizeDate() did not land on midnight, got %v", normalized)
	}

	if normalized.Location() != timezone.GetLocation() {
		t.Errorf("NormalizeDate() location = %v, expected application location", normalized.Location())
	}
}
