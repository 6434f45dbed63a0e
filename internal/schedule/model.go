package schedule

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusMissed      Status = "missed"
)

// Active reports whether a booking still occupies grid capacity.
// Only active bookings participate in conflict checks.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

// Track is one of the two parallel sub-slots offered per time step in the
// dual-track grid. Records from the two-window grid carry no track.
type Track string

const (
	TrackA Track = "A"
	TrackB Track = "B"
)

// Channel is how the patient is being served in a given sub-slot.
type Channel string

const (
	ChannelWalkIn Channel = "walkin"
	ChannelCall   Channel = "call"
)

// GridModel discriminates the two generations of the clinic day grid.
// Requests and records are tagged with exactly one of them; the engine
// never mixes the two on a single day.
type GridModel string

const (
	// ModelTwoWindow is the earlier design: two disjoint day windows,
	// one booking-unit per step, first visits expand to three units.
	ModelTwoWindow GridModel = "two-window"
	// ModelDualTrack is the current design: one continuous window, two
	// parallel tracks per step, one unit per record.
	ModelDualTrack GridModel = "dual-track"
)

// Cell is one bookable unit of a clinic day: a grid time plus, in the
// dual-track model, the track. Two-window cells carry an empty track.
type Cell struct {
	Time  string `json:"time"`
	Track Track  `json:"track,omitempty"`
}

type Booking struct {
	ID            uuid.UUID `json:"id"`
	Date          string    `json:"date"` // calendar day, "2006-01-02"
	Time          string    `json:"time"` // slot start, "15:04", grid aligned
	Track         Track     `json:"track,omitempty"`
	Channel       Channel   `json:"channel,omitempty"`
	DurationUnits int       `json:"duration_units"`
	Status        Status    `json:"status"`
	PatientID     uuid.UUID `json:"patient_id"`
	FirstVisit    bool      `json:"first_visit"`
	Notes         string    `json:"notes,omitempty"`
	Origin        string    `json:"origin,omitempty"` // desk, reminder, queue
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Cell returns the booking's starting grid cell.
func (b Booking) Cell() Cell {
	return Cell{Time: b.Time, Track: b.Track}
}
