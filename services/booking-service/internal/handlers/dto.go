package handlers

import (
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
)

type slotResponse struct {
	ID          string        `json:"id"`
	ProviderID  string        `json:"provider_id"`
	Day         model.Weekday `json:"day"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time"`
	IsAvailable bool          `json:"is_available"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

func toSlotResponse(s model.TimeSlot) slotResponse {
	return slotResponse{
		ID:          s.ID,
		ProviderID:  s.ProviderID,
		Day:         s.Day,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		IsAvailable: s.IsAvailable,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toSlotResponses(in []model.TimeSlot) []slotResponse {
	out := make([]slotResponse, 0, len(in))
	for _, s := range in {
		out = append(out, toSlotResponse(s))
	}
	return out
}

type appointmentResponse struct {
	ID         string  `json:"id"`
	ProviderID string  `json:"provider_id"`
	PatientID  string  `json:"patient_id"`
	SlotID     *string `json:"slot_id"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	Status     string  `json:"status"`
	Reason     *string `json:"reason,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:         a.ID,
		ProviderID: a.ProviderID,
		PatientID:  a.PatientID,
		SlotID:     a.SlotID,
		Date:       a.Date.Format(model.DateLayout),
		Time:       a.Time,
		Status:     string(a.Status),
		Reason:     a.Reason,
		Notes:      a.Notes,
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type createAppointmentRequest struct {
	ProviderID string  `json:"provider_id"`
	PatientID  string  `json:"patient_id"`
	SlotID     string  `json:"slot_id"`
	Date       string  `json:"date"`
	Reason     *string `json:"reason"`
	Notes      *string `json:"notes"`
}

type rescheduleRequest struct {
	SlotID string  `json:"slot_id"`
	Date   string  `json:"date"`
	Reason *string `json:"reason"`
	Notes  *string `json:"notes"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type slotWindowRequest struct {
	Day       model.Weekday `json:"day"`
	StartTime string        `json:"start_time"`
	EndTime   string        `json:"end_time"`
}

type generateSlotsRequest struct {
	Day           model.Weekday `json:"day"`
	From          string        `json:"from"`
	To            string        `json:"to"`
	LengthMinutes int           `json:"length_minutes"`
}
