package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/libs/httpx"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/reservation"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/slots"
)

type BookingHandler struct {
	engine *reservation.Engine
	slots  *slots.Service
	logger *slog.Logger
}

func NewBookingHandler(engine *reservation.Engine, slotService *slots.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{engine: engine, slots: slotService, logger: logger}
}

// Register mounts the booking API on mux. Every route expects an Actor in the
// request context (see auth.RequireActor).
func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/providers/{providerID}/slots/available", h.ListAvailableSlots)
	mux.HandleFunc("GET /api/v1/providers/{providerID}/slots", h.ListSlots)
	mux.HandleFunc("POST /api/v1/providers/{providerID}/slots", h.CreateSlot)
	mux.HandleFunc("POST /api/v1/providers/{providerID}/slots/generate", h.GenerateSlots)
	mux.HandleFunc("PUT /api/v1/slots/{slotID}", h.UpdateSlot)
	mux.HandleFunc("DELETE /api/v1/slots/{slotID}", h.DeleteSlot)

	mux.HandleFunc("POST /api/v1/appointments", h.CreateAppointment)
	mux.HandleFunc("GET /api/v1/appointments", h.ListAppointments)
	mux.HandleFunc("GET /api/v1/appointments/{id}", h.GetAppointment)
	mux.HandleFunc("PUT /api/v1/appointments/{id}", h.RescheduleAppointment)
	mux.HandleFunc("DELETE /api/v1/appointments/{id}", h.DeleteAppointment)
	mux.HandleFunc("POST /api/v1/appointments/{id}/cancel", h.CancelAppointment)
	mux.HandleFunc("PUT /api/v1/appointments/{id}/status", h.UpdateStatus)
}

func (h *BookingHandler) actor(w http.ResponseWriter, r *http.Request) (auth.Actor, bool) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated")
	}
	return actor, ok
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	d, err := time.Parse(model.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func (h *BookingHandler) ListAvailableSlots(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	out, err := h.slots.ListAvailable(r.Context(), r.PathValue("providerID"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlotResponses(out))
}

func (h *BookingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	out, err := h.slots.List(r.Context(), r.PathValue("providerID"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlotResponses(out))
}

func (h *BookingHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req slotWindowRequest
	if !decode(w, r, &req) {
		return
	}
	slot, err := h.slots.Create(r.Context(), actor, r.PathValue("providerID"), slots.Window{
		Day:       req.Day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSlotResponse(slot))
}

func (h *BookingHandler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req generateSlotsRequest
	if !decode(w, r, &req) {
		return
	}
	created, err := h.slots.Generate(r.Context(), actor, slots.GenerateRequest{
		ProviderID: r.PathValue("providerID"),
		Day:        req.Day,
		From:       req.From,
		To:         req.To,
		Length:     time.Duration(req.LengthMinutes) * time.Minute,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSlotResponses(created))
}

func (h *BookingHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req slotWindowRequest
	if !decode(w, r, &req) {
		return
	}
	slot, err := h.slots.Update(r.Context(), actor, r.PathValue("slotID"), slots.Window{
		Day:       req.Day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlotResponse(slot))
}

func (h *BookingHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.slots.Delete(r.Context(), actor, r.PathValue("slotID")); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req createAppointmentRequest
	if !decode(w, r, &req) {
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		patientID = actor.ID
	}

	appt, err := h.engine.Create(r.Context(), actor, reservation.CreateRequest{
		ProviderID: req.ProviderID,
		PatientID:  patientID,
		SlotID:     req.SlotID,
		Date:       date,
		Reason:     req.Reason,
		Notes:      req.Notes,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	h.logger.InfoContext(r.Context(), "appointment booked", "appointment_id", appt.ID, "slot_id", req.SlotID)
	httpx.WriteJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *BookingHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	appts, err := h.engine.ListForPatient(r.Context(), actor, strings.TrimSpace(r.URL.Query().Get("patient_id")))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *BookingHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	appt, err := h.engine.Get(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	appt, err := h.engine.Cancel(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	h.logger.InfoContext(r.Context(), "appointment cancelled", "appointment_id", appt.ID)
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if !decode(w, r, &req) {
		return
	}
	date, ok := parseDate(w, req.Date)
	if !ok {
		return
	}
	appt, err := h.engine.Reschedule(r.Context(), actor, reservation.RescheduleRequest{
		AppointmentID: r.PathValue("id"),
		SlotID:        req.SlotID,
		Date:          date,
		Reason:        req.Reason,
		Notes:         req.Notes,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	h.logger.InfoContext(r.Context(), "appointment rescheduled", "appointment_id", appt.ID, "slot_id", req.SlotID)
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	status, ok := model.ParseStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "unknown status")
		return
	}
	appt, err := h.engine.UpdateStatus(r.Context(), actor, r.PathValue("id"), status)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.engine.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
