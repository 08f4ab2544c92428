package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one topic per event type).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"

	EventAppointmentBooked        = "clinic.appointment.booked.v1"
	EventAppointmentCancelled     = "clinic.appointment.cancelled.v1"
	EventAppointmentRescheduled   = "clinic.appointment.rescheduled.v1"
	EventAppointmentStatusChanged = "clinic.appointment.status_changed.v1"
	EventAppointmentDeleted       = "clinic.appointment.deleted.v1"
)
