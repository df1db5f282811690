package service

import (
	"strconv"
	"strings"
)

// DurationNotSet is shown for durations that are missing or not positive.
const DurationNotSet = "duration not set"

// FormatDuration renders a minute count that may arrive as raw text.
func FormatDuration(raw string) string {
	n, ok := leadingInt(raw)
	if !ok {
		return DurationNotSet
	}
	return FormatMinutes(n)
}

// FormatMinutes renders total minutes as "1h 30 min", "2h" or "45 min".
func FormatMinutes(total int) string {
	if total <= 0 {
		return DurationNotSet
	}

	hours := total / 60
	minutes := total % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, strconv.Itoa(hours)+"h")
	}
	if minutes > 0 || total < 60 {
		parts = append(parts, strconv.Itoa(minutes)+" min")
	}
	if len(parts) == 0 {
		return "0 min"
	}
	return strings.Join(parts, " ")
}

// ParseCount reads an hours or minutes input field. Blank or non-numeric
// input counts as zero.
func ParseCount(raw string) int {
	n, _ := leadingInt(raw)
	return n
}

// TotalMinutes combines hours and minutes input fields.
func TotalMinutes(hours, minutes string) int {
	return ParseCount(hours)*60 + ParseCount(minutes)
}

// leadingInt parses an optional sign followed by leading decimal digits,
// ignoring any trailing text ("90min" is 90).
func leadingInt(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
