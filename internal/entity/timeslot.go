package entity

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// TimeSlots is the fixed list of bookable boundaries; a window starts and ends on one of them.
var TimeSlots = []string{
	"08:00", "09:00", "10:00", "11:00", "12:00",
	"13:00", "14:00", "15:00", "16:00", "17:00",
	"18:00", "19:00", "20:00", "21:00", "22:00",
}

// TimeWindow is a half-open [Start, End) interval within one day.
type TimeWindow struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

func slotIndex(clock string) int {
	for i, s := range TimeSlots {
		if s == clock {
			return i
		}
	}
	return -1
}

// NewTimeWindow validates start/end against TimeSlots. An empty end means one slot after start.
func NewTimeWindow(start, end string) (TimeWindow, error) {
	si := slotIndex(start)
	if si < 0 || si == len(TimeSlots)-1 {
		return TimeWindow{}, fmt.Errorf("%w: start time %q", ErrInvalidInput, start)
	}
	if end == "" {
		return TimeWindow{Start: start, End: TimeSlots[si+1]}, nil
	}
	ei := slotIndex(end)
	if ei <= si {
		return TimeWindow{}, fmt.Errorf("%w: end time %q", ErrInvalidInput, end)
	}
	return TimeWindow{Start: start, End: end}, nil
}

// Hours is the number of time-slot steps the window spans.
func (w TimeWindow) Hours() int {
	si, ei := slotIndex(w.Start), slotIndex(w.End)
	if si < 0 || ei <= si {
		return 0
	}
	return ei - si
}

// Overlaps compares zero-padded HH:MM strings, which order the same way as the clock.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start < o.End && o.Start < w.End
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return d, nil
}

// Today returns now's calendar date in now's location.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}
