package availability

import "github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"

// FilterAvailable drops candidates that overlap a scheduled booking.
// Cancelled bookings are ignored. The result never aliases candidates.
func FilterAvailable(candidates []Slot, bookings []model.Booking) []Slot {
	out := make([]Slot, 0, len(candidates))
	for _, c := range candidates {
		if _, busy := ConflictsWith(c.Start, c.End, bookings); !busy {
			out = append(out, c)
		}
	}
	return out
}

// ConflictsWith returns the first scheduled booking overlapping [start, end).
func ConflictsWith(start, end model.LocalTime, bookings []model.Booking) (model.Booking, bool) {
	for _, b := range bookings {
		if b.Scheduled() && Overlaps(start, end, b.Start, b.End) {
			return b, true
		}
	}
	return model.Booking{}, false
}

// RetireCancelled drops slots overlapping a cancelled booking, so a
// cancellation never re-opens its window in listings for that date.
func RetireCancelled(slots []Slot, bookings []model.Booking) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		retired := false
		for _, b := range bookings {
			if b.Status == model.StatusCancelled && Overlaps(s.Start, s.End, b.Start, b.End) {
				retired = true
				break
			}
		}
		if !retired {
			out = append(out, s)
		}
	}
	return out
}

// WithinAnyRule reports whether [start, end) fits entirely inside one rule.
func WithinAnyRule(start, end model.LocalTime, rules []model.WeeklyRule) bool {
	for _, r := range rules {
		if start >= r.Start && end <= r.End {
			return true
		}
	}
	return false
}
