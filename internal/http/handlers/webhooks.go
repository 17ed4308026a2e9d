package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"payrelay/internal/services/event"

	"github.com/rs/zerolog/log"
)

// maxWebhookBody bounds how much of a delivery is read.
const maxWebhookBody = 1 << 20

// WebhookIngester processes raw gateway deliveries.
type WebhookIngester interface {
	Ingest(ctx context.Context, body []byte, headers map[string]string) error
}

// PaystackWebhook acknowledges deliveries. Anything short of a signature or
// payload problem, or a failure on our side, is answered with 200 so the
// gateway stops retrying.
func PaystackWebhook(ing WebhookIngester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "bad payload", err.Error())
			return
		}

		headers := make(map[string]string, len(r.Header))
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}

		err = ing.Ingest(r.Context(), body, headers)
		switch {
		case err == nil:
			WriteJSON(w, http.StatusOK, map[string]string{"status": "received"})
		case errors.Is(err, event.ErrInvalidSignature):
			log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("webhook rejected")
			WriteError(w, http.StatusUnauthorized, "invalid signature", err.Error())
		case errors.Is(err, event.ErrBadPayload):
			WriteError(w, http.StatusBadRequest, "bad payload", err.Error())
		default:
			log.Error().Err(err).Msg("webhook processing failed")
			WriteError(w, http.StatusInternalServerError, "webhook processing failed", err.Error())
		}
	}
}
