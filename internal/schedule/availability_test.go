package schedule

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeBooking(date, tm string, track Track) Booking {
	return Booking{
		ID:            uuid.New(),
		Date:          date,
		Time:          tm,
		Track:         track,
		DurationUnits: 1,
		Status:        StatusScheduled,
		PatientID:     uuid.New(),
	}
}

func TestOccupiedCellsDualTrackIsPerTrack(t *testing.T) {
	b := activeBooking("2026-09-01", "10:00", TrackA)
	occ := occupiedCells(ModelDualTrack, []Booking{b}, uuid.Nil)

	assert.NotNil(t, occ[Cell{Time: "10:00", Track: TrackA}])
	assert.Nil(t, occ[Cell{Time: "10:00", Track: TrackB}], "sibling track must stay free")
	assert.Nil(t, occ[Cell{Time: "10:15", Track: TrackA}])
}

func TestOccupiedCellsSkipsInactive(t *testing.T) {
	cancelled := activeBooking("2026-09-01", "10:00", TrackA)
	cancelled.Status = StatusCancelled
	completed := activeBooking("2026-09-01", "10:15", TrackB)
	completed.Status = StatusCompleted
	missed := activeBooking("2026-09-01", "10:30", TrackA)
	missed.Status = StatusMissed

	occ := occupiedCells(ModelDualTrack, []Booking{cancelled, completed, missed}, uuid.Nil)
	assert.Empty(t, occ)
}

func TestOccupiedCellsRescheduledStillOccupies(t *testing.T) {
	b := activeBooking("2026-09-01", "10:00", TrackB)
	b.Status = StatusRescheduled

	occ := occupiedCells(ModelDualTrack, []Booking{b}, uuid.Nil)
	assert.NotNil(t, occ[Cell{Time: "10:00", Track: TrackB}])
}

func TestOccupiedCellsExcludesOwnBooking(t *testing.T) {
	b := activeBooking("2026-09-01", "10:00", TrackA)
	other := activeBooking("2026-09-01", "10:15", TrackA)

	occ := occupiedCells(ModelDualTrack, []Booking{b, other}, b.ID)
	assert.Nil(t, occ[Cell{Time: "10:00", Track: TrackA}])
	assert.NotNil(t, occ[Cell{Time: "10:15", Track: TrackA}])
}

func TestOccupiedCellsTwoWindowExpandsDuration(t *testing.T) {
	first := Booking{
		ID:            uuid.New(),
		Date:          "2026-09-01",
		Time:          "10:30",
		DurationUnits: 3,
		Status:        StatusScheduled,
		PatientID:     uuid.New(),
	}

	occ := occupiedCells(ModelTwoWindow, []Booking{first}, uuid.Nil)
	for _, tm := range []string{"10:30", "10:45", "11:00"} {
		assert.NotNil(t, occ[Cell{Time: tm}], tm)
	}
	assert.Nil(t, occ[Cell{Time: "11:15"}])
}

func TestBuildDaySheet(t *testing.T) {
	g := DualTrackGrid()
	a := activeBooking("2026-09-01", "09:30", TrackA)
	b := activeBooking("2026-09-01", "12:00", TrackB)

	sheet := BuildDaySheet(g, []Booking{a, b})
	require.Len(t, sheet, 46)

	assert.False(t, sheet[0].A.Free)
	assert.Equal(t, a.ID, sheet[0].A.Booking.ID)
	assert.True(t, sheet[0].B.Free)

	var noon SlotCell
	for _, c := range sheet {
		if c.Time == "12:00" {
			noon = c
		}
	}
	assert.True(t, noon.A.Free)
	assert.False(t, noon.B.Free)
}

func TestBuildStepSheet(t *testing.T) {
	g := TwoWindowGrid()
	first := Booking{
		ID:            uuid.New(),
		Date:          "2026-09-01",
		Time:          "17:00",
		DurationUnits: 3,
		Status:        StatusScheduled,
		PatientID:     uuid.New(),
	}

	sheet := BuildStepSheet(g, []Booking{first})
	require.Len(t, sheet, 28)

	busy := map[string]bool{"17:00": true, "17:15": true, "17:30": true}
	for _, c := range sheet {
		if busy[c.Time] {
			assert.False(t, c.Free, c.Time)
		} else {
			assert.True(t, c.Free, c.Time)
		}
	}
}
