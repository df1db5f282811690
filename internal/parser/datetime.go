package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRegex  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	clockRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseDate parses the day an activity is scheduled for.
// Supported formats:
// - dd/mm/yyyy (e.g., "26/09/2025")
// - "today" and "tomorrow", relative to now
// The result is midnight of that day in now's location.
func ParseDate(input string, now time.Time) (time.Time, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch input {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}

	matches := dateRegex.FindStringSubmatch(input)
	if len(matches) != 4 {
		return time.Time{}, fmt.Errorf("invalid date format. Use: dd/mm/yyyy, today or tomorrow")
	}

	day, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	year, _ := strconv.Atoi(matches[3])

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day must be between 1 and 31")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	// Check if date is valid (handles leap years, etc.)
	if date.Day() != day || date.Month() != time.Month(month) || date.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date")
	}
	return date, nil
}

// ParseClock parses an HH:MM time of day. Only hour and minute of the result
// are meaningful.
func ParseClock(input string) (time.Time, error) {
	matches := clockRegex.FindStringSubmatch(strings.TrimSpace(input))
	if len(matches) != 3 {
		return time.Time{}, fmt.Errorf("invalid time format. Use: HH:MM")
	}
	hour, _ := strconv.Atoi(matches[1])
	minute, _ := strconv.Atoi(matches[2])
	if hour > 23 {
		return time.Time{}, fmt.Errorf("hour must be between 0 and 23")
	}
	if minute > 59 {
		return time.Time{}, fmt.Errorf("minute must be between 0 and 59")
	}
	return time.Date(0, time.January, 1, hour, minute, 0, 0, time.UTC), nil
}
