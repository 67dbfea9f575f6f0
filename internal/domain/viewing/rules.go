package viewing

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Rules bounds when a viewing may be booked. A Rules value is never mutated
// after construction; callers receive copies.
type Rules struct {
	StartTime     string         `json:"start_time"`
	EndTime       string         `json:"end_time"`
	Duration      int            `json:"duration"`        // minutes per slot
	DaysInAdvance int            `json:"days_in_advance"` // furthest bookable day, counted from today
	MinNotice     int            `json:"min_notice"`      // hours
	ExcludeDays   []time.Weekday `json:"exclude_days"`
	Location      *time.Location `json:"-"`
}

// DefaultRules returns weekday viewings between 09:00 and 17:00 in hourly
// slots, bookable up to 30 days ahead with 24 hours notice.
func DefaultRules() Rules {
	return Rules{
		StartTime:     "09:00",
		EndTime:       "17:00",
		Duration:      60,
		DaysInAdvance: 30,
		MinNotice:     24,
		ExcludeDays:   []time.Weekday{time.Sunday, time.Saturday},
		Location:      time.UTC,
	}
}

// NewRules builds and validates a Rules value. excludeDays are weekday
// indices with 0 for Sunday; tz is an IANA zone name, empty meaning UTC.
func NewRules(start, end string, duration, daysInAdvance, minNotice int, excludeDays []int, tz string) (Rules, error) {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return Rules{}, fmt.Errorf("load viewing timezone %q: %w", tz, err)
		}
		loc = l
	}

	days := make([]time.Weekday, 0, len(excludeDays))
	for _, d := range excludeDays {
		if d < 0 || d > 6 {
			return Rules{}, fmt.Errorf("excluded weekday %d is outside 0..6", d)
		}
		days = append(days, time.Weekday(d))
	}

	r := Rules{
		StartTime:     start,
		EndTime:       end,
		Duration:      duration,
		DaysInAdvance: daysInAdvance,
		MinNotice:     minNotice,
		ExcludeDays:   days,
		Location:      loc,
	}
	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate reports whether the rules describe a usable booking window.
func (r Rules) Validate() error {
	start, err := parseClock(r.StartTime)
	if err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	end, err := parseClock(r.EndTime)
	if err != nil {
		return fmt.Errorf("end_time: %w", err)
	}
	if start >= end {
		return fmt.Errorf("start_time %s must be before end_time %s", r.StartTime, r.EndTime)
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %d", r.Duration)
	}
	if r.DaysInAdvance < 0 {
		return fmt.Errorf("days_in_advance must not be negative, got %d", r.DaysInAdvance)
	}
	if r.MinNotice < 0 {
		return fmt.Errorf("min_notice must not be negative, got %d", r.MinNotice)
	}
	for _, d := range r.ExcludeDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("excluded weekday %d is outside 0..6", d)
		}
	}
	return nil
}

// Excludes reports whether viewings are never offered on the given weekday.
func (r Rules) Excludes(d time.Weekday) bool {
	for _, ex := range r.ExcludeDays {
		if ex == d {
			return true
		}
	}
	return false
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Hints is what a booking form needs to render date pickers and help text
// without re-deriving the rules.
type Hints struct {
	MinDate         string   `json:"min_date"`
	MaxDate         string   `json:"max_date"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	SlotMinutes     int      `json:"slot_minutes"`
	MinNoticeHours  int      `json:"min_notice_hours"`
	DaysInAdvance   int      `json:"days_in_advance"`
	ExcludedDays    []string `json:"excluded_days"`
	Timezone        string   `json:"timezone"`
	ExcludedSummary string   `json:"excluded_summary,omitempty"`
}

// Hints computes display hints relative to now.
func (r Rules) Hints(now time.Time) Hints {
	today := startOfDay(now.In(r.location()))

	days := append([]time.Weekday(nil), r.ExcludeDays...)
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.String())
	}

	h := Hints{
		MinDate:        today.Format(DateLayout),
		MaxDate:        today.AddDate(0, 0, r.DaysInAdvance).Format(DateLayout),
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		SlotMinutes:    r.Duration,
		MinNoticeHours: r.MinNotice,
		DaysInAdvance:  r.DaysInAdvance,
		ExcludedDays:   names,
		Timezone:       r.location().String(),
	}
	if len(names) > 0 {
		h.ExcludedSummary = "No viewings on " + strings.Join(names, ", ")
	}
	return h
}

// parseClock converts "HH:MM" into minutes after midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil || len(s) != len(TimeLayout) {
		return 0, fmt.Errorf("%q is not a HH:MM time", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
