package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/memstore"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/reservation"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/slots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	srv    *httptest.Server
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	h := NewBookingHandler(reservation.NewEngine(store, logger), slots.NewService(store, logger), logger)

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(auth.RequireActor(auth.Verifier{Secret: testSecret})(mux))
	t.Cleanup(srv.Close)

	ts := &testServer{t: t, srv: srv, tokens: map[string]string{}}
	ts.tokens["admin"] = ts.sign("admin-1", auth.RoleAdmin)
	ts.tokens["alice"] = ts.sign("alice", "patient")
	ts.tokens["bob"] = ts.sign("bob", "patient")
	return ts
}

func (ts *testServer) sign(sub, role string) string {
	tok, err := auth.SignHS256(auth.Claims{Sub: sub, Role: role, Exp: time.Now().Add(time.Hour).Unix()}, testSecret)
	require.NoError(ts.t, err)
	return tok
}

func (ts *testServer) do(who, method, path string, body any) (int, []byte) {
	ts.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	require.NoError(ts.t, err)
	if tok, ok := ts.tokens[who]; ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)
	return resp.StatusCode, out
}

func (ts *testServer) createSlot(provider, day, start, end string) slotResponse {
	ts.t.Helper()
	code, body := ts.do("admin", http.MethodPost, "/api/v1/providers/"+provider+"/slots", map[string]string{
		"day": day, "start_time": start, "end_time": end,
	})
	require.Equal(ts.t, http.StatusCreated, code, string(body))
	var slot slotResponse
	require.NoError(ts.t, json.Unmarshal(body, &slot))
	return slot
}

func (ts *testServer) book(who, provider, slotID, date string) (int, appointmentResponse) {
	ts.t.Helper()
	code, body := ts.do(who, http.MethodPost, "/api/v1/appointments", map[string]string{
		"provider_id": provider, "slot_id": slotID, "date": date,
	})
	var appt appointmentResponse
	if code == http.StatusCreated {
		require.NoError(ts.t, json.Unmarshal(body, &appt))
	}
	return code, appt
}

func (ts *testServer) availableSlots(provider string) []slotResponse {
	ts.t.Helper()
	code, body := ts.do("alice", http.MethodGet, "/api/v1/providers/"+provider+"/slots/available", nil)
	require.Equal(ts.t, http.StatusOK, code)
	var out []slotResponse
	require.NoError(ts.t, json.Unmarshal(body, &out))
	return out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", model.ErrNotFound), http.StatusNotFound},
		{model.ErrForbidden, http.StatusForbidden},
		{model.ErrSlotUnavailable, http.StatusConflict},
		{model.ErrConflict, http.StatusConflict},
		{model.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{model.ErrInvalidInput, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t)
	code, _ := ts.do("nobody", http.MethodGet, "/api/v1/appointments", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestBookingFlow(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createSlot("doc-1", "Tuesday", "09:00", "09:30")
	t2 := ts.createSlot("doc-1", "Wednesday", "09:00", "09:30")
	assert.Equal(t, model.Tuesday, s.Day)
	assert.Len(t, ts.availableSlots("doc-1"), 2)

	code, appt := ts.book("alice", "doc-1", s.ID, "2025-05-06")
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "SCHEDULED", appt.Status)
	assert.Equal(t, "alice", appt.PatientID)
	assert.Equal(t, "09:00", appt.Time)
	assert.Len(t, ts.availableSlots("doc-1"), 1)

	code, _ = ts.book("bob", "doc-1", s.ID, "2025-05-06")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do("bob", http.MethodGet, "/api/v1/appointments/"+appt.ID, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := ts.do("alice", http.MethodPut, "/api/v1/appointments/"+appt.ID, map[string]string{
		"slot_id": t2.ID, "date": "2025-05-07",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var moved appointmentResponse
	require.NoError(t, json.Unmarshal(body, &moved))
	assert.Equal(t, "2025-05-07", moved.Date)
	require.NotNil(t, moved.SlotID)
	assert.Equal(t, t2.ID, *moved.SlotID)

	avail := ts.availableSlots("doc-1")
	require.Len(t, avail, 1)
	assert.Equal(t, s.ID, avail[0].ID)

	code, _ = ts.do("alice", http.MethodPost, "/api/v1/appointments/"+appt.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do("alice", http.MethodPost, "/api/v1/appointments/"+appt.ID+"/cancel", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Len(t, ts.availableSlots("doc-1"), 2)

	code, body = ts.do("alice", http.MethodGet, "/api/v1/appointments", nil)
	require.Equal(t, http.StatusOK, code)
	var mine []appointmentResponse
	require.NoError(t, json.Unmarshal(body, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "CANCELLED", mine[0].Status)
}

func TestStatusAndDelete_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createSlot("doc-1", "Monday", "10:00", "10:30")
	code, appt := ts.book("alice", "doc-1", s.ID, "2025-05-05")
	require.Equal(t, http.StatusCreated, code)

	code, _ = ts.do("alice", http.MethodPut, "/api/v1/appointments/"+appt.ID+"/status", map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do("admin", http.MethodPut, "/api/v1/appointments/"+appt.ID+"/status", map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do("admin", http.MethodPut, "/api/v1/appointments/"+appt.ID+"/status", map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = ts.do("admin", http.MethodPut, "/api/v1/appointments/"+appt.ID+"/status", map[string]string{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do("admin", http.MethodDelete, "/api/v1/slots/"+s.ID, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do("alice", http.MethodDelete, "/api/v1/appointments/"+appt.ID, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = ts.do("admin", http.MethodDelete, "/api/v1/appointments/"+appt.ID, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = ts.do("admin", http.MethodDelete, "/api/v1/appointments/"+appt.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)

	assert.Len(t, ts.availableSlots("doc-1"), 1)
	code, _ = ts.do("admin", http.MethodDelete, "/api/v1/slots/"+s.ID, nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestSlotAdmin(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do("alice", http.MethodPost, "/api/v1/providers/doc-1/slots", map[string]string{
		"day": "Monday", "start_time": "09:00", "end_time": "09:30",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do("admin", http.MethodPost, "/api/v1/providers/doc-1/slots", map[string]string{
		"day": "Funday", "start_time": "09:00", "end_time": "09:30",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do("admin", http.MethodPost, "/api/v1/providers/doc-1/slots", map[string]string{
		"day": "Monday", "start_time": "09:30", "end_time": "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := ts.do("admin", http.MethodPost, "/api/v1/providers/doc-1/slots/generate", map[string]any{
		"day": "Thursday", "from": "13:00", "to": "15:00", "length_minutes": 30,
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	var generated []slotResponse
	require.NoError(t, json.Unmarshal(body, &generated))
	require.Len(t, generated, 4)

	code, body = ts.do("admin", http.MethodPut, "/api/v1/slots/"+generated[0].ID, map[string]string{
		"day": "Friday", "start_time": "08:00", "end_time": "08:30",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var updated slotResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, model.Friday, updated.Day)

	avail := ts.availableSlots("doc-1")
	require.Len(t, avail, 4)
	assert.Equal(t, model.Thursday, avail[0].Day)
	assert.Equal(t, model.Friday, avail[3].Day)

	code, _ = ts.do("admin", http.MethodPut, "/api/v1/slots/missing", map[string]string{
		"day": "Friday", "start_time": "08:00", "end_time": "08:30",
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateAppointment_BadInput(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createSlot("doc-1", "Monday", "10:00", "10:30")

	code, _ := ts.book("alice", "doc-1", s.ID, "06/05/2025")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.book("alice", "doc-2", s.ID, "2025-05-05")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.book("alice", "doc-1", "", "2025-05-05")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do("alice", http.MethodPost, "/api/v1/appointments", map[string]string{
		"provider_id": "doc-1", "patient_id": "bob", "slot_id": s.ID, "date": "2025-05-05",
	})
	assert.Equal(t, http.StatusForbidden, code)
}
