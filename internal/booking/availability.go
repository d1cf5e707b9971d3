package booking

import (
	"sort"
	"time"

	"github.com/nekogravitycat/futsal-booking-backend/internal/pkg/daytime"
)

// EndOfDay closes the booking day for courts without operating hours.
const EndOfDay = daytime.Midnight

// Interval is a half-open [Start, End) span of a day.
type Interval struct {
	Start daytime.Time
	End   daytime.Time
}

// Overlaps is the half-open overlap test shared by every conflict check.
func Overlaps(aStart, aEnd, bStart, bEnd daytime.Time) bool {
	return aStart < bEnd && bStart < aEnd
}

// Conflicts reports whether existing blocks the candidate interval on date.
func Conflicts(existing *Booking, date time.Time, start, end daytime.Time) bool {
	return existing.Status.HoldsSlot() &&
		existing.Date.Equal(date) &&
		Overlaps(existing.StartTime, existing.EndTime, start, end)
}

// FreeIntervals returns the gaps in [open, close) not covered by booked slots.
// Slots that release their interval are ignored.
func FreeIntervals(open, close daytime.Time, booked []Slot) []Interval {
	held := make([]Slot, 0, len(booked))
	for _, s := range booked {
		if s.Status.HoldsSlot() {
			held = append(held, s)
		}
	}
	sort.Slice(held, func(i, j int) bool { return held[i].StartTime < held[j].StartTime })

	free := []Interval{}
	cursor := open
	for _, s := range held {
		if s.EndTime <= cursor {
			continue
		}
		if s.StartTime >= close {
			break
		}
		if s.StartTime > cursor {
			free = append(free, Interval{Start: cursor, End: s.StartTime})
		}
		cursor = s.EndTime
	}
	if cursor < close {
		free = append(free, Interval{Start: cursor, End: close})
	}
	return free
}
