package form

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2}) (AM|PM)$`)
	phoneRe = regexp.MustCompile(`Phone number:\s*[+\d][\d+\- ]{6,}`)
)

// rangeSeparator joins and splits "start - end" range strings.
const rangeSeparator = " - "

// ParseDate parses an m/d/yyyy date. Years outside 1900-2100 and calendar
// impossibilities (2/29 off leap years, month 13) are rejected.
func ParseDate(s string) (time.Time, bool) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if year < 1900 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (2/30 becomes 3/1), so a changed
	// component means the input was not a real date.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ValidDate reports whether s is a well-formed single date.
func ValidDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// ValidDateValue reports whether s is a single date or a "date - date"
// range string with the end on or after the start.
func ValidDateValue(s string) bool {
	start, end := SplitRange(s)
	if end == "" {
		return ValidDate(start)
	}
	st, ok := ParseDate(start)
	if !ok {
		return false
	}
	et, ok := ParseDate(end)
	if !ok {
		return false
	}
	return !et.Before(st)
}

// ParseClock parses an h:mm AM/PM time into minutes since midnight.
func ParseClock(s string) (int, bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, false
	}

	hour %= 12
	if m[3] == "PM" {
		hour += 12
	}
	return hour*60 + minute, true
}

// ValidTime reports whether s is a well-formed single clock time.
func ValidTime(s string) bool {
	_, ok := ParseClock(s)
	return ok
}

// ValidTimeValue reports whether s is a single time or a "time - time"
// range string of two well-formed times.
func ValidTimeValue(s string) bool {
	start, end := SplitRange(s)
	if end == "" {
		return ValidTime(start)
	}
	return ValidTime(start) && ValidTime(end)
}

// validPhoneDescription reports whether the description carries the
// "Phone number:" convention followed by at least seven phone characters.
func validPhoneDescription(description string) bool {
	return phoneRe.MatchString(description)
}

// validNumber reports whether s parses as a number, optionally requiring it
// to be non-negative.
func validNumber(s string, nonNegative bool) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false
	}
	return !nonNegative || v >= 0
}
