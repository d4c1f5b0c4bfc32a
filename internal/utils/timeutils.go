package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

var windowPattern = regexp.MustCompile(`^(\d+)([a-zA-Z]+)$`)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// ParseWindow converts a reporting window such as "30d", "2w" or "1m" into a duration.
// A month counts as 30 days. Plain Go durations ("72h") are accepted as well.
func ParseWindow(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty window")
	}

	if m := windowPattern.FindStringSubmatch(value); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("parse window %q: %w", value, err)
		}
		if n <= 0 {
			return 0, fmt.Errorf("window %q must be positive", value)
		}
		var unit time.Duration
		switch strings.ToUpper(m[2]) {
		case "D":
			unit = day
		case "W":
			unit = 7 * day
		case "M":
			unit = 30 * day
		}
		if unit > 0 {
			if int64(n) > math.MaxInt64/int64(unit) {
				return 0, fmt.Errorf("window %q is too large", value)
			}
			return time.Duration(n) * unit, nil
		}
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: use forms like 30d, 2w, 1m", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("window %q must be positive", value)
	}
	return d, nil
}

// FormatWindow renders a duration back into the shortest day-based form when possible.
func FormatWindow(d time.Duration) string {
	if d > 0 && d%day == 0 {
		days := int(d / day)
		if days%7 == 0 {
			return fmt.Sprintf("%dw", days/7)
		}
		return fmt.Sprintf("%dd", days)
	}
	return d.String()
}
