package enrollment

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Day is the weekday a class section meets on.
type Day time.Weekday

const (
	Sunday    = Day(time.Sunday)
	Monday    = Day(time.Monday)
	Tuesday   = Day(time.Tuesday)
	Wednesday = Day(time.Wednesday)
	Thursday  = Day(time.Thursday)
	Friday    = Day(time.Friday)
	Saturday  = Day(time.Saturday)
)

var dayNames = map[string]Day{
	"sunday":    Sunday,
	"sun":       Sunday,
	"monday":    Monday,
	"mon":       Monday,
	"tuesday":   Tuesday,
	"tue":       Tuesday,
	"tues":      Tuesday,
	"wednesday": Wednesday,
	"wed":       Wednesday,
	"thursday":  Thursday,
	"thu":       Thursday,
	"thurs":     Thursday,
	"friday":    Friday,
	"fri":       Friday,
	"saturday":  Saturday,
	"sat":       Saturday,
}

// ParseDay accepts full or abbreviated weekday names in any case.
func ParseDay(s string) (Day, error) {
	d, ok := dayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown day %q", s)
	}
	return d, nil
}

// String returns the lowercase day name, which is also the price table key.
func (d Day) String() string {
	return strings.ToLower(time.Weekday(d).String())
}

// Title returns the capitalized day name for display.
func (d Day) Title() string {
	return time.Weekday(d).String()
}

// order places Monday first and Sunday last.
func (d Day) order() int {
	if d == Sunday {
		return 7
	}
	return int(d)
}

// Before reports whether d comes before o in a Monday-first week.
func (d Day) Before(o Day) bool {
	return d.order() < o.order()
}

// SortDays sorts days in place in week order.
func SortDays(days []Day) {
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
}

// JoinDays renders days as "monday,wednesday" for storage.
func JoinDays(days []Day) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}

// SplitDays parses a stored "monday,wednesday" value. Empty input yields no days.
func SplitDays(s string) ([]Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var days []Day
	for _, part := range strings.Split(s, ",") {
		d, err := ParseDay(part)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
