package event

import (
	"context"
	"errors"

	"payrelay/internal/provider"
	"payrelay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// maxReplayBatch caps how many journal entries one replay request may touch.
const maxReplayBatch = 200

// ErrTooManyEvents is returned when a replay request exceeds maxReplayBatch.
var ErrTooManyEvents = errors.New("too many events in replay request")

// ReplayRequest represents an event replay request
type ReplayRequest struct {
	EventIDs []int64 `json:"eventIds"`
}

// ReplayResponse represents the result of an event replay operation
type ReplayResponse struct {
	Replayed int     `json:"replayed"`
	Failed   int     `json:"failed"`
	Missing  []int64 `json:"missing,omitempty"`
}

// Replay feeds journaled events back through reconciliation. Events whose
// payment is already final come out as ignored, so replaying is safe.
func (p *Processor) Replay(ctx context.Context, req ReplayRequest) (*ReplayResponse, error) {
	if len(req.EventIDs) > maxReplayBatch {
		return nil, ErrTooManyEvents
	}

	resp := &ReplayResponse{}
	for _, id := range req.EventIDs {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		evt, err := p.events.FindByID(ctx, id)
		if err != nil {
			resp.Failed++
			if errors.Is(err, repositories.ErrNotFound) {
				resp.Missing = append(resp.Missing, id)
				continue
			}
			log.Error().Err(err).Int64("event_id", id).Msg("replay: load event failed")
			continue
		}

		wh := &provider.WebhookEvent{
			Event:     evt.Type,
			Reference: evt.Reference,
			Channel:   evt.Channel,
			RawJSON:   evt.RawJSON,
		}
		if err := p.process(ctx, evt, wh); err != nil {
			resp.Failed++
			continue
		}
		resp.Replayed++
	}

	log.Info().
		Int("replayed", resp.Replayed).
		Int("failed", resp.Failed).
		Msg("event replay finished")
	return resp, nil
}
