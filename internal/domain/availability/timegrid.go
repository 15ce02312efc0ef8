// Package availability derives display data from provider availability records:
// time grids, per-cell slot categories, provider filtering and the calendar
// index. Every function is pure; callers own caching and sequencing.
package availability

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
)

const (
	// CalendarGranularity is the bucket size of the weekly calendar grid.
	CalendarGranularity = 60
	// ListGranularity is the bucket size of the list view slot strip.
	ListGranularity = 15

	minutesPerHour = 60
	hoursPerDay    = 24
)

// GenerateLabels returns the "HH:MM" labels of a whole day at the given
// granularity: 24 labels for 60, 96 for 15.
func GenerateLabels(granularityMinutes int) ([]string, error) {
	return GenerateLabelsBetween(granularityMinutes, 0, hoursPerDay-1)
}

// GenerateLabelsBetween returns labels from startHour:00 through the last
// bucket of endHour, inclusive.
func GenerateLabelsBetween(granularityMinutes, startHour, endHour int) ([]string, error) {
	if err := ValidateGranularity(granularityMinutes); err != nil {
		return nil, err
	}
	if startHour < 0 || endHour >= hoursPerDay || startHour > endHour {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("hour range %d-%d must lie within 0-23 and be ascending", startHour, endHour))
	}

	labels := make([]string, 0, (endHour-startHour+1)*minutesPerHour/granularityMinutes)
	for hour := startHour; hour <= endHour; hour++ {
		for minute := 0; minute < minutesPerHour; minute += granularityMinutes {
			labels = append(labels, FormatMinutes(hour*minutesPerHour+minute))
		}
	}
	return labels, nil
}

// ValidateGranularity rejects bucket sizes that do not evenly divide an hour.
func ValidateGranularity(granularityMinutes int) error {
	if granularityMinutes <= 0 || minutesPerHour%granularityMinutes != 0 {
		return apperrors.NewInvalidGranularityError(granularityMinutes)
	}
	return nil
}

// FormatMinutes renders minutes from midnight as a zero-padded "HH:MM".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/minutesPerHour, minutes%minutesPerHour)
}

// NormalizeTimeLabel converts a bare hour ("9", "09") or an "H:MM"/"HH:MM"
// string into the canonical zero-padded 24-hour "HH:MM" form.
func NormalizeTimeLabel(label string) (string, error) {
	minutes, err := ParseMinutes(label)
	if err != nil {
		return "", err
	}
	return FormatMinutes(minutes), nil
}

// ParseMinutes returns the minutes from midnight encoded by a time label.
func ParseMinutes(label string) (int, error) {
	s := strings.TrimSpace(label)
	hourPart, minutePart, hasMinutes := strings.Cut(s, ":")

	hour, err := parseDigits(hourPart, 1, 2)
	if err != nil {
		return 0, apperrors.NewMalformedTimeLabelError(label, err)
	}
	if hour >= hoursPerDay {
		return 0, apperrors.NewMalformedTimeLabelError(label, fmt.Errorf("hour %d out of range", hour))
	}

	minute := 0
	if hasMinutes {
		minute, err = parseDigits(minutePart, 2, 2)
		if err != nil {
			return 0, apperrors.NewMalformedTimeLabelError(label, err)
		}
		if minute >= minutesPerHour {
			return 0, apperrors.NewMalformedTimeLabelError(label, fmt.Errorf("minute %d out of range", minute))
		}
	}
	return hour*minutesPerHour + minute, nil
}

// FloorLabel moves a canonical label down to the start of its bucket.
func FloorLabel(label string, granularityMinutes int) (string, error) {
	if err := ValidateGranularity(granularityMinutes); err != nil {
		return "", err
	}
	minutes, err := ParseMinutes(label)
	if err != nil {
		return "", err
	}
	return FormatMinutes(minutes - minutes%granularityMinutes), nil
}

// parseDigits accepts only ASCII digits, so signs and spaces that strconv
// would tolerate are rejected.
func parseDigits(s string, minLen, maxLen int) (int, error) {
	if len(s) < minLen || len(s) > maxLen {
		return 0, fmt.Errorf("expected %d-%d digits, got %q", minLen, maxLen, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("unexpected character %q", s[i])
		}
	}
	return strconv.Atoi(s)
}
