package viewing

import "errors"

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrAppointmentCancelled = errors.New("appointment is cancelled")
	ErrPropertyNotFound     = errors.New("property not found")
	ErrSlotConflict         = errors.New("time slot is already booked")
	ErrInvalidTransition    = errors.New("invalid appointment status transition")
	ErrValidation           = errors.New("validation failed")
)

// validationError wraps ErrValidation with the user-facing message from a
// failed ValidationResult.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// ValidationMessage extracts the user-facing message from a validation
// failure, or "" if err is not one.
func ValidationMessage(err error) string {
	var ve *validationError
	if errors.As(err, &ve) {
		return ve.msg
	}
	return ""
}
