package lending

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Loan durations are rendered for operators as colon separated time strings.
// Depending on the number of parts the string reads as
// "weeks:days:hours:minutes:seconds" down to a bare seconds value.

var errInvalidDurationFormat = errors.New("lending: invalid duration format")

// ParseDurationString converts a colon separated duration string to seconds.
func ParseDurationString(duration string) (uint64, error) {
	parts := strings.Split(duration, ":")
	values := make([]uint64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errInvalidDurationFormat, duration)
		}
		values = append(values, v)
	}
	switch len(values) {
	case 1:
		return values[0], nil
	case 2:
		return values[0]*60 + values[1], nil
	case 3:
		return values[0]*3600 + values[1]*60 + values[2], nil
	case 4:
		return values[0]*86_400 + values[1]*3600 + values[2]*60 + values[3], nil
	case 5:
		return values[0]*604_800 + values[1]*86_400 + values[2]*3600 + values[3]*60 + values[4], nil
	default:
		return 0, fmt.Errorf("%w: %q", errInvalidDurationFormat, duration)
	}
}

// FormatDurationString renders seconds as a colon separated duration string,
// dropping leading zero weeks and days.
func FormatDurationString(seconds uint64) string {
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24
	weeks := days / 7

	seconds %= 60
	minutes %= 60
	hours %= 24
	days %= 7

	if weeks != 0 {
		return fmt.Sprintf("%02d:%02d:%02d:%02d:%02d", weeks, days, hours, minutes, seconds)
	}
	if days != 0 {
		return fmt.Sprintf("%02d:%02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// DurationAndUnit extracts the leading non-zero calendar component of a
// duration, the form the interest conversions want. Durations below one hour
// are rejected.
func DurationAndUnit(seconds uint64) (float64, DurationUnit, error) {
	weeks := seconds / 604_800
	if weeks != 0 {
		return float64(weeks), UnitWeeks, nil
	}
	days := seconds / 86_400
	if days != 0 {
		return float64(days), UnitDays, nil
	}
	hours := seconds / 3600
	if hours != 0 {
		return float64(hours), UnitHours, nil
	}
	return 0, UnitHours, fmt.Errorf("%w: %d seconds is below one hour", errInvalidDurationFormat, seconds)
}
