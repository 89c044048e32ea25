package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	ID      string `json:"id,omitempty"`
	Detail  string `json:"detail,omitempty"` // development only
}

func writeError(w http.ResponseWriter, status int, title, msg string) {
	writeJSON(w, status, errorResponse{Error: title, Message: msg})
}
