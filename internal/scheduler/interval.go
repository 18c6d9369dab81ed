package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// IntervalUnit is the time unit of a fetch interval.
type IntervalUnit string

const (
	UnitSeconds IntervalUnit = "seconds"
	UnitMinutes IntervalUnit = "minutes"
	UnitHours   IntervalUnit = "hours"
	UnitDays    IntervalUnit = "days"
)

// Interval is a structured recurrence period, e.g. {8, hours}.
type Interval struct {
	Value int
	Unit  IntervalUnit
}

// DefaultInterval is used when a configured interval string cannot be parsed.
var DefaultInterval = Interval{Value: 8, Unit: UnitHours}

var intervalPattern = regexp.MustCompile(`^(\d+)([a-z]+)$`)

var unitSynonyms = map[string]IntervalUnit{
	"sec": UnitSeconds, "secs": UnitSeconds, "second": UnitSeconds, "seconds": UnitSeconds,
	"min": UnitMinutes, "mins": UnitMinutes, "minute": UnitMinutes, "minutes": UnitMinutes,
	"hr": UnitHours, "hrs": UnitHours, "hour": UnitHours, "hours": UnitHours,
	"day": UnitDays, "days": UnitDays,
}

// ParseInterval parses a human-authored interval string such as "8hours" or
// "30min". Matching is case-insensitive. When the string does not match
// <digits><unit> or the unit is unrecognized, the default interval is
// returned together with a non-nil error; the caller should log it as a
// warning and schedule with the returned fallback.
func ParseInterval(s string) (Interval, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))

	m := intervalPattern.FindStringSubmatch(normalized)
	if m == nil {
		return DefaultInterval, fmt.Errorf("unrecognized interval %q, falling back to %s", s, DefaultInterval)
	}

	value, err := strconv.Atoi(m[1])
	if err != nil || value <= 0 {
		return DefaultInterval, fmt.Errorf("interval value in %q must be a positive integer, falling back to %s", s, DefaultInterval)
	}

	unit, ok := unitSynonyms[m[2]]
	if !ok {
		return DefaultInterval, fmt.Errorf("unknown interval unit %q in %q, falling back to %s", m[2], s, DefaultInterval)
	}

	return Interval{Value: value, Unit: unit}, nil
}

// Duration converts the interval to a time.Duration for the scheduler.
func (i Interval) Duration() time.Duration {
	switch i.Unit {
	case UnitSeconds:
		return time.Duration(i.Value) * time.Second
	case UnitMinutes:
		return time.Duration(i.Value) * time.Minute
	case UnitHours:
		return time.Duration(i.Value) * time.Hour
	case UnitDays:
		return time.Duration(i.Value) * 24 * time.Hour
	}
	return DefaultInterval.Duration()
}

func (i Interval) String() string {
	return fmt.Sprintf("%d %s", i.Value, i.Unit)
}
