package viewing

import (
	"fmt"
	"time"
)

// Scheduler generates and validates viewing slots for one set of rules.
// It holds no mutable state; the clock is injected so results are
// reproducible.
type Scheduler struct {
	rules Rules
	now   func() time.Time
}

// NewScheduler returns a Scheduler for rules. A nil clock means time.Now.
func NewScheduler(rules Rules, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{rules: rules, now: now}
}

// Rules returns a copy of the rules this scheduler enforces.
func (s *Scheduler) Rules() Rules {
	r := s.rules
	r.ExcludeDays = append([]time.Weekday(nil), s.rules.ExcludeDays...)
	return r
}

// Hints returns display hints for the current day.
func (s *Scheduler) Hints() Hints {
	return s.rules.Hints(s.now())
}

// GenerateTimeSlots returns the ordered "HH:MM" start times bookable on date
// (YYYY-MM-DD). It returns an empty slice, never nil, when date is empty,
// malformed, outside the advance window or on an excluded weekday. Only slots
// that fit entirely before EndTime and exist on the local clock are produced.
func (s *Scheduler) GenerateTimeSlots(date string) []string {
	slots := []string{}

	day, ok := s.parseDate(date)
	if !ok {
		return slots
	}
	if !s.inAdvanceWindow(day) || s.rules.Excludes(day.Weekday()) {
		return slots
	}

	start, err := parseClock(s.rules.StartTime)
	if err != nil {
		return slots
	}
	end, err := parseClock(s.rules.EndTime)
	if err != nil || s.rules.Duration <= 0 {
		return slots
	}

	for m := start; m+s.rules.Duration <= end; m += s.rules.Duration {
		slot := formatClock(m)
		if !s.wallClockExists(date, slot) {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

// wallClockExists reports whether tm occurs on date in the rules' location.
// Times inside a daylight-saving gap are normalised to a later hour and
// are not offered.
func (s *Scheduler) wallClockExists(date, tm string) bool {
	at, err := s.SlotInstant(date, tm)
	return err == nil && at.Format(TimeLayout) == tm
}

// SlotInstant combines a date and a slot time into one instant in the
// rules' location.
func (s *Scheduler) SlotInstant(date, tm string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+tm, s.rules.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot %s %s: %w", date, tm, err)
	}
	return t, nil
}

func (s *Scheduler) parseDate(date string) (time.Time, bool) {
	if date == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, date, s.rules.location())
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// inAdvanceWindow compares calendar days: today and today+DaysInAdvance are
// both inside the window.
func (s *Scheduler) inAdvanceWindow(day time.Time) bool {
	today := s.today()
	last := today.AddDate(0, 0, s.rules.DaysInAdvance)
	return !day.Before(today) && !day.After(last)
}

func (s *Scheduler) today() time.Time {
	return startOfDay(s.now().In(s.rules.location()))
}
