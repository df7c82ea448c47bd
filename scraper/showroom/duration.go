package showroom

import (
	"regexp"
	"strconv"
)

// durationRegexp matches the "(127m24s)" suffix of the date/duration cell.
var durationRegexp = regexp.MustCompile(`\((\d+)m(\d+)s\)`)

// ParseDuration returns the broadcast length in whole minutes, rounding
// up from 30 seconds. Text without a duration yields 0.
func ParseDuration(text string) int {
	m := durationRegexp.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return minutes
	}
	if seconds >= 30 {
		return minutes + 1
	}
	return minutes
}
