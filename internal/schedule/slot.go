package schedule

import (
	"fmt"
)

// StepMinutes is the fixed grid step of the clinic day.
const StepMinutes = 15

// DateLayout is the wire format of a clinic day.
const DateLayout = "2006-01-02"

type window struct {
	start int // minutes from midnight, inclusive
	end   int // minutes from midnight, exclusive
}

// Grid defines the bookable time cells of a clinic day for one grid model.
// It is a pure value; all derived sequences are deterministic and ordered
// by time.
type Grid struct {
	Model   GridModel
	windows []window
}

// DualTrackGrid is the live clinic day: a continuous 09:30-20:45 window
// where every step offers tracks A and B.
func DualTrackGrid() Grid {
	return Grid{
		Model: ModelDualTrack,
		windows: []window{
			{start: 9*60 + 30, end: 21 * 60}, // last step starts 20:45
		},
	}
}

// TwoWindowGrid is the retired morning/evening day used before the clinic
// moved to parallel tracks: 10:30-13:30 and 17:00-21:00, capacity one
// booking-unit per step. Kept so historical day sheets and duration-expanded
// bookings still evaluate correctly.
func TwoWindowGrid() Grid {
	return Grid{
		Model: ModelTwoWindow,
		windows: []window{
			{start: 10*60 + 30, end: 13*60 + 30},
			{start: 17 * 60, end: 21 * 60},
		},
	}
}

// Times enumerates every slot start of the day in order.
func (g Grid) Times() []string {
	var out []string
	for _, w := range g.windows {
		for cur := w.start; cur < w.end; cur += StepMinutes {
			out = append(out, clockOf(cur))
		}
	}
	return out
}

// Contains reports whether t is a valid slot start on this grid.
func (g Grid) Contains(t string) bool {
	m, err := minutesOf(t)
	if err != nil || m%StepMinutes != 0 {
		return false
	}
	for _, w := range g.windows {
		if m >= w.start && m < w.end {
			return true
		}
	}
	return false
}

// minutesOf parses a "HH:MM" clock string into minutes from midnight.
func minutesOf(t string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(t, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse slot time %q: %w", t, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("slot time %q out of range", t)
	}
	return h*60 + m, nil
}

func clockOf(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// stepsFrom returns the n consecutive grid-step times starting at t.
// The result is arithmetic only; callers must still check membership,
// which is how a run that crosses a window boundary gets rejected.
func stepsFrom(t string, n int) ([]string, error) {
	start, err := minutesOf(t)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, clockOf(start+i*StepMinutes))
	}
	return out, nil
}
