package availability

import (
	"iter"
	"time"

	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

// Slot is a bookable window rendered in the host's wall clock.
type Slot struct {
	Start model.LocalTime `json:"start"`
	End   model.LocalTime `json:"end"`
}

// GenerateSlots tiles [ruleStart, ruleEnd) on date in loc with back-to-back
// slots of durationMinutes. Tiles advance by absolute duration, so a DST
// transition inside the window shifts the wall-clock labels of later tiles.
// A trailing tile that would end after ruleEnd is dropped.
//
// The sequence is finite and may be ranged over more than once.
func GenerateSlots(date model.Date, ruleStart, ruleEnd model.LocalTime, durationMinutes int, loc *time.Location) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if durationMinutes <= 0 || durationMinutes > model.MaxDurationMinutes || loc == nil || ruleEnd <= ruleStart {
			return
		}
		step := time.Duration(durationMinutes) * time.Minute
		limit := date.At(ruleEnd, loc)
		for cur := date.At(ruleStart, loc); ; cur = cur.Add(step) {
			next := cur.Add(step)
			if next.After(limit) {
				return
			}
			s := Slot{Start: model.ClockOf(cur), End: model.ClockOf(next)}
			// Inside a fall-back hour the end label can read earlier than the start.
			if s.End <= s.Start {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd model.LocalTime) bool {
	return aStart < bEnd && bStart < aEnd
}

// IsPastDate reports whether date is strictly before today in loc.
func IsPastDate(date model.Date, now time.Time, loc *time.Location) bool {
	return date.Before(model.DateOf(now.In(loc)))
}

// MeetingEnd returns the end clock of a meeting that starts at start on date in loc.
// It reports false when the meeting would not finish on the same local day.
func MeetingEnd(date model.Date, start model.LocalTime, durationMinutes int, loc *time.Location) (model.LocalTime, bool) {
	if durationMinutes <= 0 || durationMinutes > model.MaxDurationMinutes || loc == nil || !start.Valid() {
		return 0, false
	}
	end := date.At(start, loc).Add(time.Duration(durationMinutes) * time.Minute)
	if model.DateOf(end) != date {
		return 0, false
	}
	clock := model.ClockOf(end)
	if clock <= start {
		return 0, false
	}
	return clock, true
}
