package schedule

import "github.com/google/uuid"

// Visit-size policy. A patient's first-visit flag comes from the patient
// record; nothing here recomputes it.
//
// Two-window model: a first visit consumes three consecutive grid units
// (45 minutes), a returning visit one. Dual-track model: every record is a
// single unit and the policy instead bounds how many cells one request may
// select.
const (
	firstVisitUnits     = 3
	returningVisitUnits = 1

	firstVisitCellLimit     = 3
	returningVisitCellLimit = 1
)

// UnitsFor returns how many consecutive grid units one booking record
// consumes under the given model.
func UnitsFor(model GridModel, firstVisit bool) int {
	if model == ModelTwoWindow && firstVisit {
		return firstVisitUnits
	}
	return returningVisitUnits
}

// CellLimit returns how many cells a single dual-track request may carry.
// Returning patients book exactly one cell; first visits may multi-select.
func CellLimit(model GridModel, firstVisit bool) int {
	if model != ModelDualTrack {
		return 1
	}
	if firstVisit {
		return firstVisitCellLimit
	}
	return returningVisitCellLimit
}

// SelectableStarts lists the two-window slot starts a patient of the given
// first-visit status can actually begin at: every step of the required run
// must exist on the grid and be free. A run broken by an occupied step or a
// window boundary disqualifies its starting step.
func SelectableStarts(g Grid, bookings []Booking, firstVisit bool) []string {
	units := UnitsFor(ModelTwoWindow, firstVisit)
	occ := occupiedCells(ModelTwoWindow, bookings, uuid.Nil)

	var out []string
	for _, start := range g.Times() {
		steps, err := stepsFrom(start, units)
		if err != nil {
			continue
		}
		ok := true
		for _, t := range steps {
			if !g.Contains(t) || occ[Cell{Time: t}] != nil {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, start)
		}
	}
	return out
}
