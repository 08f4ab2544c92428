package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/reservation"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/slots"
)

// Store is the PostgreSQL backing of the reservation engine and the slot
// service.
type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func New(pool *db.Pool, outboxRepo *outbox.Repository) *Store {
	return &Store{pool: pool, outbox: outboxRepo}
}

var (
	_ reservation.Store = (*Store)(nil)
	_ slots.Repository  = (*Store)(nil)
)

const slotColumns = `id, provider_id, day, start_time, end_time, is_available, created_at, updated_at`

const appointmentColumns = `id, provider_id, patient_id, slot_id, appt_date, appt_time, status, reason, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (model.TimeSlot, error) {
	var (
		slot model.TimeSlot
		day  int16
	)
	if err := row.Scan(&slot.ID, &slot.ProviderID, &day, &slot.StartTime, &slot.EndTime, &slot.IsAvailable, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
		return model.TimeSlot{}, err
	}
	slot.Day = model.Weekday(day)
	return slot, nil
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var (
		appt   model.Appointment
		status string
		date   time.Time
	)
	if err := row.Scan(
		&appt.ID,
		&appt.ProviderID,
		&appt.PatientID,
		&appt.SlotID,
		&date,
		&appt.Time,
		&status,
		&appt.Reason,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	); err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	y, m, d := date.Date()
	appt.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return appt, nil
}

// InTx runs fn inside one read-committed transaction. Lock* calls take row
// locks with SELECT ... FOR UPDATE, which serializes competing claims on the
// same slot.
func (s *Store) InTx(ctx context.Context, fn func(tx reservation.Tx) error) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, outbox: s.outbox})
	})
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := scanAppointment(s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	if err != nil {
		return model.Appointment{}, translate(err, "appointment "+id)
	}
	return appt, nil
}

func (s *Store) ListAppointmentsByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appt_date DESC, appt_time DESC, id
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (s *Store) ListSlots(ctx context.Context, providerID string, onlyAvailable bool) ([]model.TimeSlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE provider_id = $1
			AND ($2 = false OR is_available)
		ORDER BY day, start_time, id
	`, providerID, onlyAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) GetSlot(ctx context.Context, id string) (model.TimeSlot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM time_slots
		WHERE id = $1
	`, id))
	if err != nil {
		return model.TimeSlot{}, translate(err, "slot "+id)
	}
	return slot, nil
}

func (s *Store) CreateSlot(ctx context.Context, slot *model.TimeSlot) error {
	created, err := scanSlot(s.pool.QueryRow(ctx, `
		INSERT INTO time_slots (id, provider_id, day, start_time, end_time)
		VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, $4, $5)
		RETURNING `+slotColumns,
		slot.ID, slot.ProviderID, int16(slot.Day), slot.StartTime, slot.EndTime))
	if err != nil {
		return translate(err, "slot")
	}
	*slot = created
	return nil
}

func (s *Store) UpdateSlotWindow(ctx context.Context, slot *model.TimeSlot) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		cur, err := scanSlot(tx.QueryRow(ctx, `
			SELECT `+slotColumns+`
			FROM time_slots
			WHERE id = $1
			FOR UPDATE
		`, slot.ID))
		if err != nil {
			return translate(err, "slot "+slot.ID)
		}
		if !cur.IsAvailable {
			return fmt.Errorf("%w: slot %s is booked", model.ErrConflict, slot.ID)
		}

		updated, err := scanSlot(tx.QueryRow(ctx, `
			UPDATE time_slots
			SET day = $2,
				start_time = $3,
				end_time = $4,
				updated_at = now()
			WHERE id = $1
			RETURNING `+slotColumns,
			slot.ID, int16(slot.Day), slot.StartTime, slot.EndTime))
		if err != nil {
			return translate(err, "slot "+slot.ID)
		}
		*slot = updated
		return nil
	})
}

// DeleteSlot removes a slot unless a live appointment holds it. Cancelled
// appointments keep their row; the foreign key nulls their slot_id.
func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT true FROM time_slots WHERE id = $1 FOR UPDATE`, id).Scan(&exists)
		if err != nil {
			return translate(err, "slot "+id)
		}

		var holder string
		err = tx.QueryRow(ctx, `
			SELECT id
			FROM appointments
			WHERE slot_id = $1 AND status <> 'CANCELLED'
			LIMIT 1
		`, id).Scan(&holder)
		switch {
		case err == nil:
			return fmt.Errorf("%w: slot %s is held by appointment %s", model.ErrConflict, id, holder)
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
		return translate(err, "slot "+id)
	})
}
