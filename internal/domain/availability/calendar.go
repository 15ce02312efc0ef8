package availability

import (
	"fmt"
	"time"

	apperrors "github.com/nehallsharma/roaster-management/pkg/errors"
)

// DateLayout is the ISO date format used as availability key.
const DateLayout = "2006-01-02"

const daysPerWeek = 7

// DayHeader is a calendar column heading with en-US short labels
type DayHeader struct {
	Day      string `json:"day"`
	Date     int    `json:"date"`
	Month    string `json:"month"`
	Year     int    `json:"year"`
	FullDate string `json:"full_date"`
}

// ParseDate parses a YYYY-MM-DD date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("date %q must be formatted YYYY-MM-DD", s))
	}
	return t, nil
}

// FormatDate renders the calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekDays returns the Sunday-to-Saturday week containing anchor.
func WeekDays(anchor time.Time) []DayHeader {
	day := truncateToDate(anchor)
	return DateStrip(day.AddDate(0, 0, -int(day.Weekday())))
}

// DateStrip returns seven consecutive days starting at start.
func DateStrip(start time.Time) []DayHeader {
	start = truncateToDate(start)
	days := make([]DayHeader, 0, daysPerWeek)
	for i := 0; i < daysPerWeek; i++ {
		d := start.AddDate(0, 0, i)
		days = append(days, DayHeader{
			Day:      d.Weekday().String()[:3],
			Date:     d.Day(),
			Month:    d.Month().String()[:3],
			Year:     d.Year(),
			FullDate: FormatDate(d),
		})
	}
	return days
}

// ShiftWeek moves anchor by offset whole weeks.
func ShiftWeek(anchor time.Time, offset int) time.Time {
	return truncateToDate(anchor).AddDate(0, 0, offset*daysPerWeek)
}

// FullDates extracts the YYYY-MM-DD keys of a header row.
func FullDates(days []DayHeader) []string {
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.FullDate
	}
	return dates
}

// truncateToDate keeps the wall-clock date of t at midnight UTC, so date
// arithmetic is never shifted by DST.
func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
