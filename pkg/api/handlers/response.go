package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marmos91/pushstore/internal/logger"
)

// Response is the envelope of every status endpoint.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func healthyResponse(data any) Response {
	return Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(msg string, data any) Response {
	return Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: msg, Data: data}
}

func okResponse(data any) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func errorResponse(msg string) Response {
	return Response{Status: "error", Timestamp: time.Now().UTC(), Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("Failed to encode response", logger.KeyError, err)
	}
}
