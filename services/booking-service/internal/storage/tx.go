package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/outbox"
)

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *pgTx) LockSlot(ctx context.Context, slotID string) (model.TimeSlot, error) {
	slot, err := scanSlot(t.tx.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE id = $1
		FOR UPDATE
	`, slotID))
	if err != nil {
		return model.TimeSlot{}, translate(err, "slot "+slotID)
	}
	return slot, nil
}

func (t *pgTx) MarkSlotUnavailable(ctx context.Context, slotID string) error {
	return t.setAvailable(ctx, slotID, false)
}

func (t *pgTx) MarkSlotAvailable(ctx context.Context, slotID string) error {
	return t.setAvailable(ctx, slotID, true)
}

func (t *pgTx) setAvailable(ctx context.Context, slotID string, available bool) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE time_slots
		SET is_available = $2,
			updated_at = CASE WHEN is_available = $2 THEN updated_at ELSE now() END
		WHERE id = $1
	`, slotID, available)
	if err != nil {
		return translate(err, "slot "+slotID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: slot %s", model.ErrNotFound, slotID)
	}
	return nil
}

func (t *pgTx) LockAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return model.Appointment{}, translate(err, "appointment "+id)
	}
	return appt, nil
}

func (t *pgTx) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	created, err := scanAppointment(t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, provider_id, patient_id, slot_id, appt_date, appt_time, status, reason, notes)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+appointmentColumns,
		appt.ID, appt.ProviderID, appt.PatientID, appt.SlotID, appt.Date, appt.Time,
		string(appt.Status), appt.Reason, appt.Notes))
	if err != nil {
		return translate(err, "appointment")
	}
	*appt = created
	return nil
}

func (t *pgTx) UpdateAppointment(ctx context.Context, appt *model.Appointment) error {
	updated, err := scanAppointment(t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET slot_id = $2,
			appt_date = $3,
			appt_time = $4,
			status = $5,
			reason = $6,
			notes = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		appt.ID, appt.SlotID, appt.Date, appt.Time, string(appt.Status), appt.Reason, appt.Notes))
	if err != nil {
		return translate(err, "appointment "+appt.ID)
	}
	*appt = updated
	return nil
}

func (t *pgTx) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return translate(err, "appointment "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: appointment %s", model.ErrNotFound, id)
	}
	return nil
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
