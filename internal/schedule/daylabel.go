package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDayLabel converts a column label like "Пн 01.01" to a concrete date.
// The source never states the year, so the current year is assumed and the
// date rolls forward one year when it would land before today. That keeps
// "tomorrow is January 1st" correct when parsed on December 31st.
func ParseDayLabel(label string, now time.Time) (time.Time, error) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return time.Time{}, fmt.Errorf("empty day label")
	}

	dm := strings.Split(fields[len(fields)-1], ".")
	if len(dm) != 2 {
		return time.Time{}, fmt.Errorf("day label %q has no DD.MM part", label)
	}

	day, err := strconv.Atoi(dm[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("day label %q: bad day: %w", label, err)
	}
	month, err := strconv.Atoi(dm[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("day label %q: bad month: %w", label, err)
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("day label %q: out of range", label)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	date := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		date = date.AddDate(1, 0, 0)
	}
	return date, nil
}
