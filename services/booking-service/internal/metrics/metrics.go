package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "reservation",
			Name:      "operations_total",
			Help:      "Reservation engine operations by name and outcome.",
		},
		[]string{"op", "outcome"},
	)

	duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clinicbook",
			Subsystem: "reservation",
			Name:      "operation_duration_seconds",
			Help:      "Latency of reservation engine operations, including the transaction.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	slotClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Subsystem: "reservation",
			Name:      "slot_flips_total",
			Help:      "Slot availability flips committed, by direction.",
		},
		[]string{"direction"},
	)
)

// Register registers metrics (idempotent).
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		reg.MustRegister(operations, duration, slotClaims)
	})
}

func ObserveOperation(op string, start time.Time, err error) {
	operations.WithLabelValues(op, Outcome(err)).Inc()
	duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func IncSlotClaimed() {
	slotClaims.WithLabelValues("claimed").Inc()
}

func IncSlotReleased() {
	slotClaims.WithLabelValues("released").Inc()
}

// Outcome maps an operation error onto a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrForbidden):
		return "forbidden"
	case errors.Is(err, model.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	case errors.Is(err, model.ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
