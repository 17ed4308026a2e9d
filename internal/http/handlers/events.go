package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"payrelay/internal/services/event"
)

// EventReplayer re-runs journaled webhook events.
type EventReplayer interface {
	Replay(ctx context.Context, req event.ReplayRequest) (*event.ReplayResponse, error)
}

func ReplayEvents(svc EventReplayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in event.ReplayRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
		if len(in.EventIDs) == 0 {
			WriteError(w, http.StatusBadRequest, "eventIds is required", "invalid input")
			return
		}

		resp, err := svc.Replay(r.Context(), in)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, event.ErrTooManyEvents) {
				status = http.StatusBadRequest
			}
			WriteError(w, status, "replay failed", err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
