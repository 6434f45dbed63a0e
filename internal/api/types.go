package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/verdantclinic/frontdesk/internal/schedule"
)

type CellPayload struct {
	Time  string `json:"time"`
	Track string `json:"track"`
}

type CreateBookingRequest struct {
	Model      string        `json:"model,omitempty"`
	Date       string        `json:"date"`
	Cells      []CellPayload `json:"cells"`
	Channel    string        `json:"channel"`
	PatientID  string        `json:"patient_id"`
	FirstVisit bool          `json:"first_visit"`
	Notes      string        `json:"notes,omitempty"`
	Origin     string        `json:"origin,omitempty"`
}

type RescheduleBookingRequest struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Track   string `json:"track,omitempty"`
	Channel string `json:"channel,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type CompleteBookingRequest struct {
	NextVisit string `json:"next_visit,omitempty"`
}

type BookingResponse struct {
	ID            uuid.UUID `json:"id"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Track         string    `json:"track,omitempty"`
	Channel       string    `json:"channel,omitempty"`
	DurationUnits int       `json:"duration_units"`
	Status        string    `json:"status"`
	PatientID     uuid.UUID `json:"patient_id"`
	FirstVisit    bool      `json:"first_visit"`
	Notes         string    `json:"notes,omitempty"`
	Origin        string    `json:"origin,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toBookingResponse(b schedule.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		Date:          b.Date,
		Time:          b.Time,
		Track:         string(b.Track),
		Channel:       string(b.Channel),
		DurationUnits: b.DurationUnits,
		Status:        string(b.Status),
		PatientID:     b.PatientID,
		FirstVisit:    b.FirstVisit,
		Notes:         b.Notes,
		Origin:        b.Origin,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toBookingResponses(bookings []schedule.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

type CreatePatientRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Age     int    `json:"age,omitempty"`
	Gender  string `json:"gender,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type UpdatePatientRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Age     *int    `json:"age,omitempty"`
	Gender  *string `json:"gender,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type CreateReminderRequest struct {
	PatientID   string `json:"patient_id,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Message     string `json:"message,omitempty"`
}

type BookReminderRequest struct {
	CreateBookingRequest
}

type CreateQueueEntryRequest struct {
	PatientName string `json:"patient_name"`
	Phone       string `json:"phone"`
	Reason      string `json:"reason,omitempty"`
	FirstVisit  bool   `json:"first_visit"`
	AddedBy     string `json:"added_by,omitempty"`
	StaffNotes  string `json:"staff_notes,omitempty"`
}

type CompleteQueueEntryRequest struct {
	By    string `json:"by,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type RemoveQueueEntryRequest struct {
	By string `json:"by,omitempty"`
}

type ConflictCell struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Track string `json:"track,omitempty"`
}

type ErrorResponse struct {
	Error    string        `json:"error"`
	Details  string        `json:"details,omitempty"`
	Conflict *ConflictCell `json:"conflict,omitempty"`
}
