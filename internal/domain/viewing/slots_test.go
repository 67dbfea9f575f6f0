package viewing

import (
	"reflect"
	"testing"
	"time"
	_ "time/tzdata"
)

// Friday 14 June 2024, 10:00 UTC.
var fixedNow = time.Date(2024, 6, 14, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestScheduler(r Rules) *Scheduler {
	return NewScheduler(r, fixedClock)
}

func scenarioRules() Rules {
	r := DefaultRules()
	r.StartTime = "09:00"
	r.EndTime = "12:00"
	r.Duration = 30
	return r
}

func TestGenerateTimeSlots_ScenarioA(t *testing.T) {
	s := newTestScheduler(scenarioRules())

	if got := s.GenerateTimeSlots("2024-06-15"); len(got) != 0 {
		t.Errorf("expected no slots on Saturday, got %v", got)
	}

	want := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	if got := s.GenerateTimeSlots("2024-06-17"); !reflect.DeepEqual(got, want) {
		t.Errorf("Monday slots = %v, want %v", got, want)
	}
}

func TestGenerateTimeSlots_HourlyCount(t *testing.T) {
	s := newTestScheduler(DefaultRules())
	got := s.GenerateTimeSlots("2024-06-17")

	want := []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for _, slot := range got {
		if slot == "17:00" {
			t.Error("end time must never be a slot")
		}
	}
}

func TestGenerateTimeSlots_WithinBounds(t *testing.T) {
	r := DefaultRules()
	r.StartTime = "08:15"
	r.EndTime = "12:00"
	r.Duration = 45
	s := newTestScheduler(r)

	got := s.GenerateTimeSlots("2024-06-18")
	want := []string{"08:15", "09:00", "09:45", "10:30", "11:15"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for _, slot := range got {
		m, _ := parseClock(slot)
		if m < 8*60+15 || m+45 > 12*60 {
			t.Errorf("slot %s does not fit in the window", slot)
		}
	}
}

func TestGenerateTimeSlots_PartialSlotDropped(t *testing.T) {
	r := DefaultRules()
	r.StartTime = "09:00"
	r.EndTime = "10:30"
	r.Duration = 60
	s := newTestScheduler(r)

	want := []string{"09:00"}
	if got := s.GenerateTimeSlots("2024-06-18"); !reflect.DeepEqual(got, want) {
		t.Errorf("slots = %v, want %v", got, want)
	}
}

func TestGenerateTimeSlots_ExcludedWeekdays(t *testing.T) {
	s := newTestScheduler(DefaultRules())
	for _, date := range []string{"2024-06-15", "2024-06-16", "2024-06-22", "2024-06-23"} {
		if got := s.GenerateTimeSlots(date); len(got) != 0 {
			t.Errorf("%s: expected no slots, got %v", date, got)
		}
	}
}

func TestGenerateTimeSlots_EmptyNotNil(t *testing.T) {
	s := newTestScheduler(DefaultRules())
	for _, date := range []string{"", "not-a-date", "2024-13-01", "2024-06-13", "2024-07-15", "2024-06-15"} {
		got := s.GenerateTimeSlots(date)
		if got == nil {
			t.Errorf("%q: expected empty slice, got nil", date)
		}
		if len(got) != 0 {
			t.Errorf("%q: expected no slots, got %v", date, got)
		}
	}
}

func TestGenerateTimeSlots_TodayAllowed(t *testing.T) {
	s := newTestScheduler(DefaultRules())
	if got := s.GenerateTimeSlots("2024-06-14"); len(got) != 8 {
		t.Errorf("expected today's slots to be generated, got %v", got)
	}
}

func TestGenerateTimeSlots_Pure(t *testing.T) {
	s := newTestScheduler(DefaultRules())
	a := s.GenerateTimeSlots("2024-06-17")
	a[0] = "mutated"
	b := s.GenerateTimeSlots("2024-06-17")
	if b[0] != "09:00" {
		t.Errorf("expected fresh slice on each call, got %v", b)
	}
}

func TestScheduler_RulesReturnsCopy(t *testing.T) {
	s := newTestScheduler(DefaultRules())
	r := s.Rules()
	r.ExcludeDays[0] = time.Wednesday

	if s.Rules().Excludes(time.Wednesday) {
		t.Error("modifying returned rules must not change the scheduler")
	}
}

func TestSlotInstant_UsesRulesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	r := DefaultRules()
	r.Location = loc
	s := newTestScheduler(r)

	at, err := s.SlotInstant("2024-06-17", "10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Errorf("SlotInstant = %v, want %v", at.UTC(), want)
	}

	if _, err := s.SlotInstant("2024-06-17", "10am"); err == nil {
		t.Error("expected error for malformed time")
	}
}

func TestGenerateTimeSlots_SkipsDaylightSavingGap(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	r := DefaultRules()
	r.StartTime = "01:00"
	r.EndTime = "04:00"
	r.Duration = 30
	r.DaysInAdvance = 365
	r.ExcludeDays = nil
	r.Location = loc
	s := newTestScheduler(r)

	// Clocks jump from 02:00 to 03:00 on 2025-03-09.
	got := s.GenerateTimeSlots("2025-03-09")
	want := []string{"01:00", "01:30", "03:00", "03:30"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GenerateTimeSlots = %v, want %v", got, want)
	}
	if res := s.ValidateTime("2025-03-09", "02:00"); res.Valid {
		t.Error("02:00 does not exist on 2025-03-09 and must not validate")
	}

	// The day before is unaffected.
	if n := len(s.GenerateTimeSlots("2025-03-08")); n != 6 {
		t.Errorf("expected 6 slots on 2025-03-08, got %d", n)
	}
}
