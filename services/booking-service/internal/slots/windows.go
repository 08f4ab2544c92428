package slots

import (
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Windows returns back-to-back windows of the given length within [from, to)
// that do not overlap any busy interval. All times share one location; only
// their wall clock matters.
func Windows(from, to time.Time, length time.Duration, busy []Interval) []Interval {
	if length <= 0 || !to.After(from) {
		return nil
	}

	var out []Interval
	for t := from; !t.Add(length).After(to); t = t.Add(length) {
		w := Interval{Start: t, End: t.Add(length)}
		if !overlapsAny(w, busy) {
			out = append(out, w)
		}
	}
	return out
}

func overlapsAny(w Interval, busy []Interval) bool {
	for _, b := range busy {
		// Half-open: [s,e) overlaps [bs,be) iff s < be && bs < e.
		if w.Start.Before(b.End) && b.Start.Before(w.End) {
			return true
		}
	}
	return false
}

// clockInterval parses a slot's HH:MM bounds onto the zero date.
func clockInterval(slot model.TimeSlot) (Interval, bool) {
	s, err := time.Parse(model.ClockLayout, slot.StartTime)
	if err != nil {
		return Interval{}, false
	}
	e, err := time.Parse(model.ClockLayout, slot.EndTime)
	if err != nil {
		return Interval{}, false
	}
	return Interval{Start: s, End: e}, true
}
