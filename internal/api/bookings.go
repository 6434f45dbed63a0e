package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisclient "github.com/verdantclinic/frontdesk/internal/redis"
	"github.com/verdantclinic/frontdesk/internal/schedule"
)

func (req CreateBookingRequest) toDomain(grid schedule.Grid) (schedule.BookingRequest, error) {
	model := schedule.GridModel(req.Model)
	if req.Model == "" {
		model = grid.Model
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return schedule.BookingRequest{}, errors.New("patient_id must be a valid UUID")
	}

	cells := make([]schedule.Cell, 0, len(req.Cells))
	for _, c := range req.Cells {
		cells = append(cells, schedule.Cell{Time: c.Time, Track: schedule.Track(c.Track)})
	}

	return schedule.BookingRequest{
		Model:      model,
		Date:       req.Date,
		Cells:      cells,
		Channel:    schedule.Channel(req.Channel),
		PatientID:  patientID,
		FirstVisit: req.FirstVisit,
		Notes:      req.Notes,
		Origin:     req.Origin,
	}, nil
}

func createBookingHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		domainReq, err := req.toDomain(svc.Grid())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}

		created, err := svc.Book(r.Context(), domainReq)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponses(created))
	}
}

func listBookingsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "date query parameter is required")
			return
		}

		bookings, err := svc.BookingsForDate(r.Context(), date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponses(bookings))
	}
}

func rescheduleBookingHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		var req RescheduleBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.Reschedule(r.Context(), id, schedule.RescheduleRequest{
			Date:    req.Date,
			Time:    req.Time,
			Track:   schedule.Track(req.Track),
			Channel: schedule.Channel(req.Channel),
			Notes:   req.Notes,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(*b))
	}
}

func cancelBookingHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		b, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(*b))
	}
}

func completeBookingHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		var req CompleteBookingRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		b, err := svc.Complete(r.Context(), id, req.NextVisit)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(*b))
	}
}

func deleteBookingHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			handleBookingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func daySheetHandler(sheets *schedule.SheetCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := chi.URLParam(r, "date")
		if _, err := time.Parse(schedule.DateLayout, date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		sheet, err := sheets.DaySheet(r.Context(), date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sheet)
	}
}

func bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleBookingError(w http.ResponseWriter, err error) {
	var conflict *schedule.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeConflict(w, "slot_conflict", err.Error(), &ConflictCell{
			Date:  conflict.Date,
			Time:  conflict.Cell.Time,
			Track: string(conflict.Cell.Track),
		})
	case errors.Is(err, schedule.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, schedule.ErrInvalidSlotType):
		writeError(w, http.StatusUnprocessableEntity, "invalid_slot_type", err.Error())
	case errors.Is(err, schedule.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, redisclient.ErrDayBusy):
		writeError(w, http.StatusConflict, "day_busy", "the day is being modified, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
