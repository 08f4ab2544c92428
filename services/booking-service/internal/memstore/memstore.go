// Package memstore keeps slots, appointments and outbox events in process
// memory. Units of work are serialized by one mutex and applied
// copy-on-write, so a failed unit leaves no trace. It backs STORE=memory and
// the engine tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/reservation"
)

type Store struct {
	mu    sync.Mutex
	state state
	now   func() time.Time
}

type state struct {
	slots  map[string]model.TimeSlot
	appts  map[string]model.Appointment
	events []outbox.Event
}

func (s state) clone() state {
	out := state{
		slots:  make(map[string]model.TimeSlot, len(s.slots)),
		appts:  make(map[string]model.Appointment, len(s.appts)),
		events: append([]outbox.Event(nil), s.events...),
	}
	for k, v := range s.slots {
		out.slots[k] = v
	}
	for k, v := range s.appts {
		out.appts[k] = v
	}
	return out
}

func New() *Store {
	return &Store{
		state: state{
			slots: map[string]model.TimeSlot{},
			appts: map[string]model.Appointment{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ reservation.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx reservation.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memTx{st: &work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.state.appts[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("%w: appointment %s", model.ErrNotFound, id)
	}
	return appt, nil
}

func (s *Store) ListAppointmentsByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Appointment
	for _, a := range s.state.appts {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) ListSlots(ctx context.Context, providerID string, onlyAvailable bool) ([]model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.TimeSlot
	for _, slot := range s.state.slots {
		if slot.ProviderID != providerID {
			continue
		}
		if onlyAvailable && !slot.IsAvailable {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return model.SlotLess(out[i], out[j]) })
	return out, nil
}

func (s *Store) GetSlot(ctx context.Context, id string) (model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.state.slots[id]
	if !ok {
		return model.TimeSlot{}, fmt.Errorf("%w: slot %s", model.ErrNotFound, id)
	}
	return slot, nil
}

// CreateSlot stores a new available slot. An empty ID is assigned.
func (s *Store) CreateSlot(ctx context.Context, slot *model.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if _, exists := s.state.slots[slot.ID]; exists {
		return fmt.Errorf("%w: slot %s already exists", model.ErrConflict, slot.ID)
	}
	now := s.now()
	slot.IsAvailable = true
	slot.CreatedAt = now
	slot.UpdatedAt = now
	s.state.slots[slot.ID] = *slot
	return nil
}

// UpdateSlotWindow rewrites day and bounds of a slot that nobody holds.
func (s *Store) UpdateSlotWindow(ctx context.Context, slot *model.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.state.slots[slot.ID]
	if !ok {
		return fmt.Errorf("%w: slot %s", model.ErrNotFound, slot.ID)
	}
	if !cur.IsAvailable {
		return fmt.Errorf("%w: slot %s is booked", model.ErrConflict, slot.ID)
	}
	cur.Day = slot.Day
	cur.StartTime = slot.StartTime
	cur.EndTime = slot.EndTime
	cur.UpdatedAt = s.now()
	s.state.slots[cur.ID] = cur
	*slot = cur
	return nil
}

// DeleteSlot removes a slot unless a live appointment holds it. Cancelled
// appointments that still point at it are detached.
func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.slots[id]; !ok {
		return fmt.Errorf("%w: slot %s", model.ErrNotFound, id)
	}
	for _, a := range s.state.appts {
		if a.HoldsSlot(id) {
			return fmt.Errorf("%w: slot %s is held by appointment %s", model.ErrConflict, id, a.ID)
		}
	}
	for apptID, a := range s.state.appts {
		if a.SlotID != nil && *a.SlotID == id {
			a.SlotID = nil
			s.state.appts[apptID] = a
		}
	}
	delete(s.state.slots, id)
	return nil
}

// Events returns a copy of every outbox event committed so far.
func (s *Store) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.state.events...)
}

// Appointments returns a snapshot of all appointments.
func (s *Store) Appointments() []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Appointment, 0, len(s.state.appts))
	for _, a := range s.state.appts {
		out = append(out, a)
	}
	return out
}

// Slots returns a snapshot of all slots.
func (s *Store) Slots() []model.TimeSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.TimeSlot, 0, len(s.state.slots))
	for _, slot := range s.state.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return model.SlotLess(out[i], out[j]) })
	return out
}

type memTx struct {
	st  *state
	now func() time.Time
}

func (t *memTx) LockSlot(ctx context.Context, slotID string) (model.TimeSlot, error) {
	slot, ok := t.st.slots[slotID]
	if !ok {
		return model.TimeSlot{}, fmt.Errorf("%w: slot %s", model.ErrNotFound, slotID)
	}
	return slot, nil
}

func (t *memTx) MarkSlotUnavailable(ctx context.Context, slotID string) error {
	return t.setAvailable(slotID, false)
}

func (t *memTx) MarkSlotAvailable(ctx context.Context, slotID string) error {
	return t.setAvailable(slotID, true)
}

func (t *memTx) setAvailable(slotID string, available bool) error {
	slot, ok := t.st.slots[slotID]
	if !ok {
		return fmt.Errorf("%w: slot %s", model.ErrNotFound, slotID)
	}
	if slot.IsAvailable == available {
		return nil
	}
	slot.IsAvailable = available
	slot.UpdatedAt = t.now()
	t.st.slots[slotID] = slot
	return nil
}

func (t *memTx) LockAppointment(ctx context.Context, id string) (model.Appointment, error) {
	appt, ok := t.st.appts[id]
	if !ok {
		return model.Appointment{}, fmt.Errorf("%w: appointment %s", model.ErrNotFound, id)
	}
	return appt, nil
}

func (t *memTx) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	if appt.SlotID != nil && appt.Status.Holding() {
		for _, other := range t.st.appts {
			if other.HoldsSlot(*appt.SlotID) {
				return fmt.Errorf("%w: slot %s is held by appointment %s", model.ErrSlotUnavailable, *appt.SlotID, other.ID)
			}
		}
	}
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := t.now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	t.st.appts[appt.ID] = *appt
	return nil
}

func (t *memTx) UpdateAppointment(ctx context.Context, appt *model.Appointment) error {
	cur, ok := t.st.appts[appt.ID]
	if !ok {
		return fmt.Errorf("%w: appointment %s", model.ErrNotFound, appt.ID)
	}
	if appt.SlotID != nil && appt.Status.Holding() {
		for _, other := range t.st.appts {
			if other.ID != appt.ID && other.HoldsSlot(*appt.SlotID) {
				return fmt.Errorf("%w: slot %s is held by appointment %s", model.ErrSlotUnavailable, *appt.SlotID, other.ID)
			}
		}
	}
	appt.CreatedAt = cur.CreatedAt
	appt.UpdatedAt = t.now()
	t.st.appts[appt.ID] = *appt
	return nil
}

func (t *memTx) DeleteAppointment(ctx context.Context, id string) error {
	if _, ok := t.st.appts[id]; !ok {
		return fmt.Errorf("%w: appointment %s", model.ErrNotFound, id)
	}
	delete(t.st.appts, id)
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	t.st.events = append(t.st.events, evt)
	return nil
}
