// Package slots manages a provider's weekly timeslots. Availability flags are
// owned by the reservation engine; this package only reads them and guards
// admin edits against slots that are currently booked.
package slots

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
)

// Repository persists slots. UpdateSlotWindow and DeleteSlot fail with
// model.ErrConflict while a live appointment holds the slot.
type Repository interface {
	ListSlots(ctx context.Context, providerID string, onlyAvailable bool) ([]model.TimeSlot, error)
	GetSlot(ctx context.Context, id string) (model.TimeSlot, error)
	CreateSlot(ctx context.Context, slot *model.TimeSlot) error
	UpdateSlotWindow(ctx context.Context, slot *model.TimeSlot) error
	DeleteSlot(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Window is the editable part of a slot.
type Window struct {
	Day       model.Weekday
	StartTime string
	EndTime   string
}

// ListAvailable returns the provider's bookable slots ordered by day then
// start time.
func (s *Service) ListAvailable(ctx context.Context, providerID string) ([]model.TimeSlot, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, fmt.Errorf("%w: provider id is required", model.ErrInvalidInput)
	}
	return s.repo.ListSlots(ctx, providerID, true)
}

// List returns every slot of the provider, booked or not.
func (s *Service) List(ctx context.Context, providerID string) ([]model.TimeSlot, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, fmt.Errorf("%w: provider id is required", model.ErrInvalidInput)
	}
	return s.repo.ListSlots(ctx, providerID, false)
}

func (s *Service) Get(ctx context.Context, id string) (model.TimeSlot, error) {
	return s.repo.GetSlot(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, providerID string, w Window) (model.TimeSlot, error) {
	if !actor.IsAdmin {
		return model.TimeSlot{}, fmt.Errorf("%w: only admins manage slots", model.ErrForbidden)
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return model.TimeSlot{}, fmt.Errorf("%w: provider id is required", model.ErrInvalidInput)
	}
	start, end, err := model.ValidateWindow(w.Day, w.StartTime, w.EndTime)
	if err != nil {
		return model.TimeSlot{}, err
	}

	slot := model.TimeSlot{ProviderID: providerID, Day: w.Day, StartTime: start, EndTime: end}
	if err := s.repo.CreateSlot(ctx, &slot); err != nil {
		return model.TimeSlot{}, err
	}
	s.logger.Info("slot created", "slot_id", slot.ID, "provider_id", providerID, "day", slot.Day.String(), "start", start)
	return slot, nil
}

// GenerateRequest splits [From, To) on Day into slots of Length, skipping
// windows that overlap slots the provider already has that day.
type GenerateRequest struct {
	ProviderID string
	Day        model.Weekday
	From       string
	To         string
	Length     time.Duration
}

func (s *Service) Generate(ctx context.Context, actor auth.Actor, req GenerateRequest) ([]model.TimeSlot, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("%w: only admins manage slots", model.ErrForbidden)
	}
	if strings.TrimSpace(req.ProviderID) == "" {
		return nil, fmt.Errorf("%w: provider id is required", model.ErrInvalidInput)
	}
	if req.Length < 5*time.Minute || req.Length%time.Minute != 0 {
		return nil, fmt.Errorf("%w: slot length must be a whole number of minutes, at least 5", model.ErrInvalidInput)
	}
	from, to, err := model.ValidateWindow(req.Day, req.From, req.To)
	if err != nil {
		return nil, err
	}
	fromT, _ := time.Parse(model.ClockLayout, from)
	toT, _ := time.Parse(model.ClockLayout, to)

	existing, err := s.repo.ListSlots(ctx, req.ProviderID, false)
	if err != nil {
		return nil, err
	}
	var busy []Interval
	for _, slot := range existing {
		if slot.Day != req.Day {
			continue
		}
		if iv, ok := clockInterval(slot); ok {
			busy = append(busy, iv)
		}
	}

	var created []model.TimeSlot
	for _, w := range Windows(fromT, toT, req.Length, busy) {
		slot := model.TimeSlot{
			ProviderID: req.ProviderID,
			Day:        req.Day,
			StartTime:  w.Start.Format(model.ClockLayout),
			EndTime:    w.End.Format(model.ClockLayout),
		}
		if err := s.repo.CreateSlot(ctx, &slot); err != nil {
			return created, err
		}
		created = append(created, slot)
	}
	s.logger.Info("slots generated", "provider_id", req.ProviderID, "day", req.Day.String(), "count", len(created))
	return created, nil
}

// Update moves a free slot to a new day or time window.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, w Window) (model.TimeSlot, error) {
	if !actor.IsAdmin {
		return model.TimeSlot{}, fmt.Errorf("%w: only admins manage slots", model.ErrForbidden)
	}
	start, end, err := model.ValidateWindow(w.Day, w.StartTime, w.EndTime)
	if err != nil {
		return model.TimeSlot{}, err
	}
	slot := model.TimeSlot{ID: id, Day: w.Day, StartTime: start, EndTime: end}
	if err := s.repo.UpdateSlotWindow(ctx, &slot); err != nil {
		return model.TimeSlot{}, err
	}
	return slot, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsAdmin {
		return fmt.Errorf("%w: only admins manage slots", model.ErrForbidden)
	}
	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		return err
	}
	s.logger.Info("slot deleted", "slot_id", id)
	return nil
}
