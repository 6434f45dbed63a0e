package schedule

import (
	"github.com/google/uuid"
)

// TrackState is the availability of one track at one time step.
type TrackState struct {
	Free    bool     `json:"free"`
	Booking *Booking `json:"booking,omitempty"`
}

// SlotCell is one row of the dual-track day sheet: a slot start with the
// independent state of tracks A and B.
type SlotCell struct {
	Time string     `json:"time"`
	A    TrackState `json:"a"`
	B    TrackState `json:"b"`
}

// StepCell is one row of the two-window day sheet, where a step holds at
// most one booking-unit.
type StepCell struct {
	Time    string   `json:"time"`
	Free    bool     `json:"free"`
	Booking *Booking `json:"booking,omitempty"`
}

// occupiedCells expands a day's bookings into the set of cells they occupy.
// Inactive bookings never occupy anything. exclude removes one booking from
// consideration, which is how a reschedule skips its own prior occupancy.
//
// In the two-window model a booking of durationUnits n starting at step t
// covers the n consecutive steps from t; in the dual-track model every
// booking covers exactly its (time, track) cell.
func occupiedCells(model GridModel, bookings []Booking, exclude uuid.UUID) map[Cell]*Booking {
	occ := make(map[Cell]*Booking)
	for i := range bookings {
		b := &bookings[i]
		if !b.Status.Active() || b.ID == exclude {
			continue
		}
		switch model {
		case ModelTwoWindow:
			units := b.DurationUnits
			if units < 1 {
				units = 1
			}
			steps, err := stepsFrom(b.Time, units)
			if err != nil {
				continue
			}
			for _, t := range steps {
				occ[Cell{Time: t}] = b
			}
		default:
			occ[Cell{Time: b.Time, Track: b.Track}] = b
		}
	}
	return occ
}

// BuildDaySheet renders the dual-track availability grid for one day from
// its active bookings. Pure and idempotent; the input is never mutated.
func BuildDaySheet(g Grid, bookings []Booking) []SlotCell {
	occ := occupiedCells(ModelDualTrack, bookings, uuid.Nil)

	times := g.Times()
	sheet := make([]SlotCell, 0, len(times))
	for _, t := range times {
		a := occ[Cell{Time: t, Track: TrackA}]
		b := occ[Cell{Time: t, Track: TrackB}]
		sheet = append(sheet, SlotCell{
			Time: t,
			A:    TrackState{Free: a == nil, Booking: a},
			B:    TrackState{Free: b == nil, Booking: b},
		})
	}
	return sheet
}

// BuildStepSheet renders the two-window availability grid, with every
// booking expanded over its full duration span.
func BuildStepSheet(g Grid, bookings []Booking) []StepCell {
	occ := occupiedCells(ModelTwoWindow, bookings, uuid.Nil)

	times := g.Times()
	sheet := make([]StepCell, 0, len(times))
	for _, t := range times {
		b := occ[Cell{Time: t}]
		sheet = append(sheet, StepCell{Time: t, Free: b == nil, Booking: b})
	}
	return sheet
}
