package reservation

import (
	"context"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/outbox"
)

// Store is the persistence the engine runs against.
//
// InTx must execute fn as one isolated, all-or-nothing unit: rows returned by
// the Lock* methods stay locked until fn returns, and any error from fn rolls
// back every write made through tx, including appended events.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetAppointment(ctx context.Context, id string) (model.Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID string) ([]model.Appointment, error)
}

// Tx is the unit-of-work view of the store. Missing rows surface as
// model.ErrNotFound.
type Tx interface {
	LockSlot(ctx context.Context, slotID string) (model.TimeSlot, error)
	// MarkSlotUnavailable and MarkSlotAvailable are idempotent flips.
	MarkSlotUnavailable(ctx context.Context, slotID string) error
	MarkSlotAvailable(ctx context.Context, slotID string) error

	LockAppointment(ctx context.Context, id string) (model.Appointment, error)
	// InsertAppointment assigns ID and timestamps on appt.
	InsertAppointment(ctx context.Context, appt *model.Appointment) error
	UpdateAppointment(ctx context.Context, appt *model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	AppendEvent(ctx context.Context, evt outbox.Event) error
}
