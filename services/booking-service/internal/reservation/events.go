package reservation

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/outbox"
)

func appointmentEvent(eventType string, appt model.Appointment, extra map[string]any) (outbox.Event, error) {
	payload := map[string]any{
		"appointment_id": appt.ID,
		"provider_id":    appt.ProviderID,
		"patient_id":     appt.PatientID,
		"date":           appt.Date.Format(model.DateLayout),
		"time":           appt.Time,
		"status":         string(appt.Status),
		"occurred_at":    time.Now().UTC().Format(time.RFC3339),
	}
	if appt.SlotID != nil {
		payload["slot_id"] = *appt.SlotID
	}
	for k, v := range extra {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: outbox.AggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
