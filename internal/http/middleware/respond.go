package middleware

import (
	"encoding/json"
	"net/http"
)

// writeErrorJSON emits the API-wide error envelope so middleware rejections
// look the same as handler rejections.
func writeErrorJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"message": message},
	})
}
