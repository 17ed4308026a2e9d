package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"payrelay/internal/services/payment"

	"github.com/rs/zerolog/log"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// WriteError writes the {"message", "error"} body every failure uses.
func WriteError(w http.ResponseWriter, status int, message, detail string) {
	WriteJSON(w, status, map[string]string{"message": message, "error": detail})
}

// writeServiceError maps a payment service error kind onto its status code.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, payment.ErrInvalidInput), errors.Is(err, payment.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, payment.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, payment.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, payment.ErrGateway):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	WriteError(w, status, payment.Message(err, "internal error"), err.Error())
}
