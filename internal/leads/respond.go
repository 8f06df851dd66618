package leads

import (
	"encoding/json"
	"net/http"
)

// envelope is the response wrapper shared by all API endpoints.
type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError responds with a fixed, safe message. Internal error detail
// never reaches the caller.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{
		Success: false,
		Error:   &apiError{Message: message},
	})
}

func writeValidationError(w http.ResponseWriter, fieldErrors map[string][]string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Error: &apiError{
			Message: "Validation failed",
			Details: fieldErrors,
		},
	})
}
