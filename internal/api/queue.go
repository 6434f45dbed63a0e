package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/verdantclinic/frontdesk/internal/queue"
)

func createQueueEntryHandler(svc *queue.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateQueueEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.PatientName) == "" || strings.TrimSpace(req.Phone) == "" {
			writeError(w, http.StatusBadRequest, "invalid_queue_entry", "patient_name and phone are required")
			return
		}

		e := &queue.Entry{
			PatientName: req.PatientName,
			Phone:       req.Phone,
			Reason:      req.Reason,
			FirstVisit:  req.FirstVisit,
			AddedBy:     req.AddedBy,
			StaffNotes:  req.StaffNotes,
		}
		if err := svc.Add(r.Context(), e); err != nil {
			handleQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, e)
	}
}

func listQueueHandler(svc *queue.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.Pending(r.Context())
		if err != nil {
			handleQueueError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func completeQueueEntryHandler(svc *queue.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := queueEntryID(w, r)
		if !ok {
			return
		}

		var req CompleteQueueEntryRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		e, err := svc.Complete(r.Context(), id, req.By, req.Notes)
		if err != nil {
			handleQueueError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func deleteQueueEntryHandler(svc *queue.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := queueEntryID(w, r)
		if !ok {
			return
		}

		by := r.URL.Query().Get("by")
		if err := svc.Remove(r.Context(), id, by); err != nil {
			handleQueueError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listQueueLogsHandler(svc *queue.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := svc.Logs(r.Context())
		if err != nil {
			handleQueueError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

func queueEntryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_queue_entry_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "queue_entry_not_found", err.Error())
	case errors.Is(err, queue.ErrAlreadyQueued):
		writeError(w, http.StatusConflict, "already_queued", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
