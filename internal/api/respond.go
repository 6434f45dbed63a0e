package api

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func writeConflict(w http.ResponseWriter, code, details string, cell *ConflictCell) {
	writeJSON(w, http.StatusConflict, ErrorResponse{
		Error:    code,
		Details:  details,
		Conflict: cell,
	})
}
