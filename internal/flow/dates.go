package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AvailabilityLabel renders a date the way the availability grid labels its
// cells, e.g. "Mon, 03 Feb".
func AvailabilityLabel(d time.Time) string {
	return d.Format("Mon, 02 Jan")
}

// maxMonthSteps bounds forward navigation in the date picker.
const maxMonthSteps = 12

// calendarMonth parses the picker's month and year labels.  An unreadable
// year falls back to fallbackYear.
func calendarMonth(monthLabel, yearLabel string, fallbackYear int) (time.Month, int, error) {
	name := strings.TrimSpace(monthLabel)
	var month time.Month
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			month = m
			break
		}
	}
	if month == 0 {
		return 0, 0, fmt.Errorf("unknown calendar month %q", name)
	}
	year, err := strconv.Atoi(strings.TrimSpace(yearLabel))
	if err != nil {
		year = fallbackYear
	}
	return month, year, nil
}
