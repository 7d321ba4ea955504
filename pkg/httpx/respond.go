package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmehra2102/Gym-Booking-System/pkg/apperr"
)

type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its status code. Internal and communication details
// are logged, never sent to the client.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed", "err", err)
		msg = "unexpected error"
	case http.StatusServiceUnavailable:
		log.Warn("upstream unavailable", "err", err)
		msg = "unable to reach a dependent service, please try again later"
	}
	WriteJSON(w, status, ErrorResponse{
		Error:     apperr.Title(err),
		Message:   msg,
		Timestamp: time.Now().UTC(),
	})
}
