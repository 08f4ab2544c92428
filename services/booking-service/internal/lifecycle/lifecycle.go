// Package lifecycle is the appointment status state machine.
//
//	SCHEDULED -> CONFIRMED | CANCELLED
//	CONFIRMED -> COMPLETED | CANCELLED
//
// COMPLETED and CANCELLED are terminal. SCHEDULED is only ever assigned at
// creation and is never a transition target.
package lifecycle

import (
	"fmt"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
)

var transitions = map[model.Status][]model.Status{
	model.StatusScheduled: {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusCancelled},
}

func Terminal(s model.Status) bool {
	return s == model.StatusCompleted || s == model.StatusCancelled
}

func CanTransition(from, to model.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves appt to the target status or returns ErrInvalidTransition
// leaving appt untouched.
func Transition(appt *model.Appointment, to model.Status) error {
	if !CanTransition(appt.Status, to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, appt.Status, to)
	}
	appt.Status = to
	return nil
}

// CheckMutable fails for appointments that may no longer be cancelled or rescheduled.
func CheckMutable(appt model.Appointment) error {
	if Terminal(appt.Status) {
		return fmt.Errorf("%w: appointment is %s", model.ErrInvalidTransition, appt.Status)
	}
	return nil
}
