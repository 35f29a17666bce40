package timeparser_test

import (
	"testing"
	"time"

	"github.com/septivank/civic-kiosk/tools/timeparser"
)

func TestParseReadingDate_DateTime(t *testing.T) {
	result, err := timeparser.ParseReadingDate("29/12/2025 10:30:45", time.UTC)
	if err != nil {
		t.Fatalf("Failed to parse reading date: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingDate_DateOnly(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	result, err := timeparser.ParseReadingDate("29/12/2025", loc)
	if err != nil {
		t.Fatalf("Failed to parse reading date: %v", err)
	}

	expected := time.Date(2025, 12, 29, 0, 0, 0, 0, loc)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingDate_RFC3339(t *testing.T) {
	result, err := timeparser.ParseReadingDate("2025-12-29T10:30:45Z", nil)
	if err != nil {
		t.Fatalf("Failed to parse reading date: %v", err)
	}

	expected := time.Date(2025, 12, 29, 10, 30, 45, 0, time.UTC)
	if !result.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestParseReadingDate_Invalid(t *testing.T) {
	if _, err := timeparser.ParseReadingDate("invalid-date-string", time.UTC); err == nil {
		t.Error("Expected error for invalid reading date")
	}
}

func TestIsWithinTolerance_WithinRange(t *testing.T) {
	readingTime := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	receivedTime := time.Date(2025, 12, 29, 10, 33, 0, 0, time.UTC)

	if !timeparser.IsWithinTolerance(readingTime, receivedTime, 5) {
		t.Error("Expected reading date to be within tolerance")
	}
}

func TestIsWithinTolerance_OutsideRange(t *testing.T) {
	readingTime := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)
	receivedTime := time.Date(2025, 12, 29, 10, 36, 0, 0, time.UTC)

	if timeparser.IsWithinTolerance(readingTime, receivedTime, 5) {
		t.Error("Expected reading date to be outside tolerance")
	}
}

func TestIsWithinTolerance_ExactBoundary(t *testing.T) {
	readingTime := time.Date(2025, 12, 29, 10, 35, 0, 0, time.UTC)
	receivedTime := time.Date(2025, 12, 29, 10, 30, 0, 0, time.UTC)

	if !timeparser.IsWithinTolerance(readingTime, receivedTime, 5) {
		t.Error("Expected reading date at exact boundary to be within tolerance")
	}
}

func TestStartOfDayAndMonth(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2026, 3, 17, 18, 45, 12, 99, loc)

	if got, want := timeparser.StartOfDay(now), time.Date(2026, 3, 17, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("StartOfDay: expected %v, got %v", want, got)
	}
	if got, want := timeparser.StartOfMonth(now), time.Date(2026, 3, 1, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("StartOfMonth: expected %v, got %v", want, got)
	}

	start, end := timeparser.DayWindow(now)
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("Expected 24h window, got %v", end.Sub(start))
	}
}
