package model

import "time"

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Holding reports whether an appointment in this status keeps its slot
// reserved. Only cancellation gives a slot back; completion is a plain
// status edit and leaves the slot with its appointment.
func (s Status) Holding() bool {
	return s != StatusCancelled
}

// DateLayout is the wire format of appointment dates.
const DateLayout = "2006-01-02"

type Appointment struct {
	ID         string
	ProviderID string
	PatientID  string
	SlotID     *string
	Date       time.Time // calendar day, midnight UTC
	Time       string    // HH:MM copied from the slot at booking time
	Status     Status
	Reason     *string
	Notes      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HoldsSlot reports whether the appointment currently owns slotID.
func (a Appointment) HoldsSlot(slotID string) bool {
	return a.SlotID != nil && *a.SlotID == slotID && a.Status.Holding()
}
