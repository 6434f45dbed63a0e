package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/verdantclinic/frontdesk/internal/patient"
)

func createPatientHandler(store patient.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" {
			writeError(w, http.StatusBadRequest, "invalid_patient", "name and phone are required")
			return
		}

		p := &patient.Patient{
			Name:       req.Name,
			Phone:      req.Phone,
			Age:        req.Age,
			Gender:     req.Gender,
			Address:    req.Address,
			FirstVisit: true,
			Notes:      req.Notes,
		}
		if err := store.Create(r.Context(), p); err != nil {
			handlePatientError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, p)
	}
}

func listPatientsHandler(store patient.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patients, err := store.List(r.Context())
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, patients)
	}
}

func getPatientHandler(store patient.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := patientID(w, r)
		if !ok {
			return
		}

		p, err := store.Get(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func lookupPatientHandler(store patient.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := r.URL.Query().Get("phone")
		if phone == "" {
			writeError(w, http.StatusBadRequest, "missing_phone", "phone query parameter is required")
			return
		}

		p, err := store.FindByPhone(r.Context(), phone)
		if err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func updatePatientHandler(store patient.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := patientID(w, r)
		if !ok {
			return
		}

		var req UpdatePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := store.Get(r.Context(), id)
		if err != nil {
			handlePatientError(w, err)
			return
		}

		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Phone != nil {
			p.Phone = *req.Phone
		}
		if req.Age != nil {
			p.Age = *req.Age
		}
		if req.Gender != nil {
			p.Gender = *req.Gender
		}
		if req.Address != nil {
			p.Address = *req.Address
		}
		if req.Notes != nil {
			p.Notes = *req.Notes
		}

		if err := store.Update(r.Context(), p); err != nil {
			handlePatientError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func patientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handlePatientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, patient.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
