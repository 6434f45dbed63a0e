package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/verdantclinic/frontdesk/internal/reminder"
	"github.com/verdantclinic/frontdesk/internal/schedule"
)

func createReminderHandler(svc *reminder.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		rem := &reminder.Reminder{
			PatientName: req.PatientName,
			Phone:       req.Phone,
			Type:        reminder.Type(req.Type),
			Date:        req.Date,
			Message:     req.Message,
			Origin:      "front_desk",
		}
		if req.PatientID != "" {
			pid, err := uuid.Parse(req.PatientID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			rem.PatientID = &pid
		}

		if err := svc.Add(r.Context(), rem); err != nil {
			handleReminderError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, rem)
	}
}

func listRemindersHandler(svc *reminder.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reminders, err := svc.Pending(r.Context())
		if err != nil {
			handleReminderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reminders)
	}
}

func completeReminderHandler(svc *reminder.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := reminderID(w, r)
		if !ok {
			return
		}

		if err := svc.Complete(r.Context(), id); err != nil {
			handleReminderError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteReminderHandler(svc *reminder.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := reminderID(w, r)
		if !ok {
			return
		}

		if err := svc.Remove(r.Context(), id); err != nil {
			handleReminderError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// bookReminderHandler books the grid cells named in the body and closes the
// reminder in one call.
func bookReminderHandler(svc *reminder.Service, grid schedule.Grid) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := reminderID(w, r)
		if !ok {
			return
		}

		var req BookReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		domainReq, err := req.toDomain(grid)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", err.Error())
			return
		}

		created, err := svc.BookFromReminder(r.Context(), id, domainReq)
		if err != nil {
			handleReminderBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponses(created))
	}
}

func reminderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_reminder_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleReminderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reminder.ErrReminderNotFound):
		writeError(w, http.StatusNotFound, "reminder_not_found", err.Error())
	case errors.Is(err, reminder.ErrInvalidType):
		writeError(w, http.StatusBadRequest, "invalid_reminder_type", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleReminderBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reminder.ErrReminderNotFound),
		errors.Is(err, reminder.ErrReminderClosed):
		handleReminderError(w, err)
	default:
		handleBookingError(w, err)
	}
}
