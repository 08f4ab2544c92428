// Package reservation is the only place where slot availability changes.
// Every mutating operation claims or releases slots in the same store
// transaction that writes the appointment and its outbox event, so a slot is
// unavailable exactly while one non-cancelled appointment references it.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/outbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Engine struct {
	store  Store
	logger *slog.Logger
	tracer trace.Tracer
}

func NewEngine(store Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("clinicbook/reservation"),
	}
}

type CreateRequest struct {
	ProviderID string
	PatientID  string
	SlotID     string
	Date       time.Time
	Reason     *string
	Notes      *string
}

// RescheduleRequest moves an appointment to SlotID on Date. Nil Reason or
// Notes keep the current values.
type RescheduleRequest struct {
	AppointmentID string
	SlotID        string
	Date          time.Time
	Reason        *string
	Notes         *string
}

func (e *Engine) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (appt model.Appointment, err error) {
	ctx, done := e.begin(ctx, "create", actor, "slot_id", req.SlotID, "provider_id", req.ProviderID)
	defer func() { done(err) }()

	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.SlotID = strings.TrimSpace(req.SlotID)
	if req.ProviderID == "" || req.PatientID == "" || req.SlotID == "" || req.Date.IsZero() {
		return model.Appointment{}, fmt.Errorf("%w: provider_id, patient_id, slot_id and date are required", model.ErrInvalidInput)
	}
	if !actor.IsAdmin && actor.ID != req.PatientID {
		return model.Appointment{}, fmt.Errorf("%w: patients may only book for themselves", model.ErrForbidden)
	}

	err = e.store.InTx(ctx, func(tx Tx) error {
		slot, err := lockClaimable(ctx, tx, req.SlotID, req.ProviderID)
		if err != nil {
			return err
		}
		if err := tx.MarkSlotUnavailable(ctx, slot.ID); err != nil {
			return err
		}

		slotID := slot.ID
		appt = model.Appointment{
			ProviderID: req.ProviderID,
			PatientID:  req.PatientID,
			SlotID:     &slotID,
			Date:       dateOnly(req.Date),
			Time:       slot.StartTime,
			Status:     model.StatusScheduled,
			Reason:     req.Reason,
			Notes:      req.Notes,
		}
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}
		return emit(ctx, tx, outbox.EventAppointmentBooked, appt, nil)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	metrics.IncSlotClaimed()
	return appt, nil
}

func (e *Engine) Cancel(ctx context.Context, actor auth.Actor, appointmentID string) (appt model.Appointment, err error) {
	ctx, done := e.begin(ctx, "cancel", actor, "appointment_id", appointmentID)
	defer func() { done(err) }()

	var released bool
	err = e.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.LockAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := authorize(actor, cur); err != nil {
			return err
		}
		if err := lifecycle.Transition(&cur, model.StatusCancelled); err != nil {
			return err
		}
		if cur.SlotID != nil {
			if err := tx.MarkSlotAvailable(ctx, *cur.SlotID); err != nil {
				return err
			}
			released = true
		}
		if err := tx.UpdateAppointment(ctx, &cur); err != nil {
			return err
		}
		appt = cur
		return emit(ctx, tx, outbox.EventAppointmentCancelled, cur, nil)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if released {
		metrics.IncSlotReleased()
	}
	return appt, nil
}

func (e *Engine) Reschedule(ctx context.Context, actor auth.Actor, req RescheduleRequest) (appt model.Appointment, err error) {
	ctx, done := e.begin(ctx, "reschedule", actor, "appointment_id", req.AppointmentID, "slot_id", req.SlotID)
	defer func() { done(err) }()

	req.SlotID = strings.TrimSpace(req.SlotID)
	if req.SlotID == "" || req.Date.IsZero() {
		return model.Appointment{}, fmt.Errorf("%w: slot_id and date are required", model.ErrInvalidInput)
	}

	var moved bool
	err = e.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.LockAppointment(ctx, req.AppointmentID)
		if err != nil {
			return err
		}
		if err := authorize(actor, cur); err != nil {
			return err
		}
		if err := lifecycle.CheckMutable(cur); err != nil {
			return err
		}

		var oldSlotID string
		if cur.SlotID != nil {
			oldSlotID = *cur.SlotID
		}

		var target model.TimeSlot
		if oldSlotID == req.SlotID {
			// Same slot: the appointment already holds it, nothing to flip.
			if target, err = tx.LockSlot(ctx, req.SlotID); err != nil {
				return err
			}
		} else {
			// Lock both slots in id order so crossing reschedules cannot deadlock.
			if oldSlotID != "" && oldSlotID < req.SlotID {
				if _, err := tx.LockSlot(ctx, oldSlotID); err != nil {
					return err
				}
			}
			if target, err = lockClaimable(ctx, tx, req.SlotID, cur.ProviderID); err != nil {
				return err
			}
			if oldSlotID != "" {
				if err := tx.MarkSlotAvailable(ctx, oldSlotID); err != nil {
					return err
				}
			}
			if err := tx.MarkSlotUnavailable(ctx, target.ID); err != nil {
				return err
			}
			moved = true
		}

		slotID := target.ID
		cur.SlotID = &slotID
		cur.Date = dateOnly(req.Date)
		cur.Time = target.StartTime
		if req.Reason != nil {
			cur.Reason = req.Reason
		}
		if req.Notes != nil {
			cur.Notes = req.Notes
		}
		if err := tx.UpdateAppointment(ctx, &cur); err != nil {
			return err
		}
		appt = cur
		return emit(ctx, tx, outbox.EventAppointmentRescheduled, cur, map[string]any{
			"previous_slot_id": oldSlotID,
		})
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if moved {
		metrics.IncSlotClaimed()
		metrics.IncSlotReleased()
	}
	return appt, nil
}

// Delete hard-deletes an appointment (admin purge). A slot is released only
// when the appointment still held it.
func (e *Engine) Delete(ctx context.Context, actor auth.Actor, appointmentID string) (err error) {
	ctx, done := e.begin(ctx, "delete", actor, "appointment_id", appointmentID)
	defer func() { done(err) }()

	if !actor.IsAdmin {
		return fmt.Errorf("%w: only admins may delete appointments", model.ErrForbidden)
	}

	var released bool
	err = e.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.LockAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := tx.DeleteAppointment(ctx, cur.ID); err != nil {
			return err
		}
		if cur.SlotID != nil && cur.Status.Holding() {
			if err := tx.MarkSlotAvailable(ctx, *cur.SlotID); err != nil {
				return err
			}
			released = true
		}
		return emit(ctx, tx, outbox.EventAppointmentDeleted, cur, map[string]any{
			"slot_released": released,
		})
	})
	if err != nil {
		return err
	}
	if released {
		metrics.IncSlotReleased()
	}
	return nil
}

// UpdateStatus applies an administrative status edit. Confirm and complete
// are plain field updates that never touch slot availability; cancellation
// goes through Cancel so the slot is released.
func (e *Engine) UpdateStatus(ctx context.Context, actor auth.Actor, appointmentID string, to model.Status) (appt model.Appointment, err error) {
	if to == model.StatusCancelled {
		return e.Cancel(ctx, actor, appointmentID)
	}

	ctx, done := e.begin(ctx, "update_status", actor, "appointment_id", appointmentID, "status", string(to))
	defer func() { done(err) }()

	if _, ok := model.ParseStatus(string(to)); !ok {
		return model.Appointment{}, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, to)
	}
	if !actor.IsAdmin {
		return model.Appointment{}, fmt.Errorf("%w: only admins may change appointment status", model.ErrForbidden)
	}

	err = e.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.LockAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		prev := cur.Status
		if err := lifecycle.Transition(&cur, to); err != nil {
			return err
		}
		if err := tx.UpdateAppointment(ctx, &cur); err != nil {
			return err
		}
		appt = cur
		return emit(ctx, tx, outbox.EventAppointmentStatusChanged, cur, map[string]any{
			"previous_status": string(prev),
		})
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (e *Engine) Get(ctx context.Context, actor auth.Actor, appointmentID string) (appt model.Appointment, err error) {
	ctx, done := e.begin(ctx, "get", actor, "appointment_id", appointmentID)
	defer func() { done(err) }()

	appt, err = e.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := authorize(actor, appt); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// ListForPatient returns a patient's appointments, newest date first.
func (e *Engine) ListForPatient(ctx context.Context, actor auth.Actor, patientID string) (appts []model.Appointment, err error) {
	ctx, done := e.begin(ctx, "list", actor, "patient_id", patientID)
	defer func() { done(err) }()

	if patientID == "" {
		patientID = actor.ID
	}
	if !actor.IsAdmin && actor.ID != patientID {
		return nil, fmt.Errorf("%w: patients may only list their own appointments", model.ErrForbidden)
	}
	return e.store.ListAppointmentsByPatient(ctx, patientID)
}

func authorize(actor auth.Actor, appt model.Appointment) error {
	if actor.IsAdmin || (actor.ID != "" && actor.ID == appt.PatientID) {
		return nil
	}
	return fmt.Errorf("%w: appointment belongs to another patient", model.ErrForbidden)
}

// lockClaimable locks slotID and checks that it can be claimed for providerID.
// A missing slot reads as unavailable.
func lockClaimable(ctx context.Context, tx Tx, slotID, providerID string) (model.TimeSlot, error) {
	slot, err := tx.LockSlot(ctx, slotID)
	if errors.Is(err, model.ErrNotFound) {
		return model.TimeSlot{}, fmt.Errorf("%w: slot %s does not exist", model.ErrSlotUnavailable, slotID)
	}
	if err != nil {
		return model.TimeSlot{}, err
	}
	if slot.ProviderID != providerID {
		return model.TimeSlot{}, fmt.Errorf("%w: slot %s belongs to another provider", model.ErrSlotUnavailable, slotID)
	}
	if !slot.IsAvailable {
		return model.TimeSlot{}, fmt.Errorf("%w: slot %s is already booked", model.ErrSlotUnavailable, slotID)
	}
	return slot, nil
}

func emit(ctx context.Context, tx Tx, eventType string, appt model.Appointment, extra map[string]any) error {
	evt, err := appointmentEvent(eventType, appt, extra)
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, evt)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// begin opens a span for op and returns the matching completion func, which
// records metrics and logs failures before they are handed back to the caller.
func (e *Engine) begin(ctx context.Context, op string, actor auth.Actor, kv ...string) (context.Context, func(error)) {
	start := time.Now()

	attrs := []attribute.KeyValue{
		attribute.String("actor.id", actor.ID),
		attribute.Bool("actor.admin", actor.IsAdmin),
	}
	logArgs := []any{"op", op, "actor_id", actor.ID}
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
		logArgs = append(logArgs, kv[i], kv[i+1])
	}
	ctx, span := e.tracer.Start(ctx, "reservation."+op, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		defer span.End()
		metrics.ObserveOperation(op, start, err)
		if err == nil {
			return
		}
		outcome := metrics.Outcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		level := slog.LevelInfo
		if outcome == "error" {
			level = slog.LevelError
		}
		e.logger.Log(ctx, level, "reservation operation failed", append(logArgs, "outcome", outcome, "err", err)...)
	}
}
