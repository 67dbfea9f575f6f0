package viewing

import (
	"fmt"
	"time"
)

// User-facing validation messages.
const (
	MsgDateRequired   = "Date is required"
	MsgDateInvalid    = "Please enter a valid date (YYYY-MM-DD)"
	MsgTimeRequired   = "Time is required"
	MsgTimeNotOffered = "Please select an available time slot"
	MsgSlotTaken      = "This time slot is already booked. Please choose another time"
)

// ValidationResult is returned by every validator. Error is set only when
// Valid is false.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func valid() ValidationResult { return ValidationResult{Valid: true} }

func invalid(msg string) ValidationResult { return ValidationResult{Valid: false, Error: msg} }

// ValidateDate checks that date is present, inside the advance window and
// not on an excluded weekday.
func (s *Scheduler) ValidateDate(date string) ValidationResult {
	if date == "" {
		return invalid(MsgDateRequired)
	}
	day, ok := s.parseDate(date)
	if !ok {
		return invalid(MsgDateInvalid)
	}
	if !s.inAdvanceWindow(day) {
		return invalid(s.advanceWindowMessage())
	}
	if s.rules.Excludes(day.Weekday()) {
		return invalid(fmt.Sprintf("Viewings are not available on %ss", day.Weekday()))
	}
	return valid()
}

// ValidateTime checks that tm is one of the slots generated for date.
// Membership in GenerateTimeSlots is the only test applied.
func (s *Scheduler) ValidateTime(date, tm string) ValidationResult {
	if tm == "" {
		return invalid(MsgTimeRequired)
	}
	for _, slot := range s.GenerateTimeSlots(date) {
		if slot == tm {
			return valid()
		}
	}
	return invalid(MsgTimeNotOffered)
}

// ValidateNotice rejects a slot that starts less than MinNotice hours from now.
func (s *Scheduler) ValidateNotice(date, tm string) ValidationResult {
	at, err := s.SlotInstant(date, tm)
	if err != nil {
		return invalid(MsgTimeNotOffered)
	}
	earliest := s.now().Add(time.Duration(s.rules.MinNotice) * time.Hour)
	if at.Before(earliest) {
		return invalid(s.noticeMessage())
	}
	return valid()
}

// ValidateSlot runs the date, time and notice checks in that order and
// returns the first failure.
func (s *Scheduler) ValidateSlot(date, tm string) ValidationResult {
	if res := s.ValidateDate(date); !res.Valid {
		return res
	}
	if res := s.ValidateTime(date, tm); !res.Valid {
		return res
	}
	return s.ValidateNotice(date, tm)
}

func (s *Scheduler) advanceWindowMessage() string {
	if s.rules.DaysInAdvance == 0 {
		return "Viewings can only be booked for today"
	}
	return fmt.Sprintf("Please select a date between today and %d days from now", s.rules.DaysInAdvance)
}

func (s *Scheduler) noticeMessage() string {
	if s.rules.MinNotice == 1 {
		return "Viewings must be booked at least 1 hour in advance"
	}
	return fmt.Sprintf("Viewings must be booked at least %d hours in advance", s.rules.MinNotice)
}
