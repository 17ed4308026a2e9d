package event

import (
	"context"
	"errors"
	"fmt"

	"payrelay/internal/domain/event"
	"payrelay/internal/domain/payment"
	"payrelay/internal/metrics"
	"payrelay/internal/provider"
	svcpayment "payrelay/internal/services/payment"
	"payrelay/internal/store/cache"
	"payrelay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidSignature means the delivery did not come from the gateway.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrBadPayload means the body could not be decoded into a gateway event.
	ErrBadPayload = errors.New("malformed webhook payload")
	// ErrRetryable means processing failed on our side and the gateway
	// should redeliver.
	ErrRetryable = errors.New("webhook processing failed")
)

// WebhookHandler is the part of the payment service the processor drives.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, evt *provider.WebhookEvent) (*payment.Payment, bool, error)
}

// Processor authenticates, journals and reconciles gateway webhook deliveries.
type Processor struct {
	verifier provider.WebhookVerifier
	events   repositories.EventRepository
	dedup    repositories.Deduper
	payments WebhookHandler
	metrics  *metrics.Metrics
}

// NewProcessor creates a new webhook processor. A nil deduper disables
// delivery de-duplication.
func NewProcessor(
	verifier provider.WebhookVerifier,
	events repositories.EventRepository,
	dedup repositories.Deduper,
	payments WebhookHandler,
	m *metrics.Metrics,
) *Processor {
	if dedup == nil {
		dedup = cache.Noop{}
	}
	return &Processor{
		verifier: verifier,
		events:   events,
		dedup:    dedup,
		payments: payments,
		metrics:  m,
	}
}

// Ingest handles one raw delivery. A nil error means the delivery should be
// acknowledged, including unknown references and repeated deliveries.
func (p *Processor) Ingest(ctx context.Context, body []byte, headers map[string]string) error {
	if err := p.verifier.ValidateWebhook(body, headers); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	wh, err := p.verifier.ParseWebhook(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	key := wh.Event + ":" + wh.Reference
	claimed, err := p.dedup.Claim(ctx, key)
	if err != nil {
		// the ledger stays authoritative; carry on without the shortcut
		log.Warn().Err(err).Str("key", key).Msg("webhook dedup unavailable")
		claimed = true
	}
	if !claimed {
		p.metrics.DuplicateWebhook()
		log.Info().
			Str("event", wh.Event).
			Str("reference", wh.Reference).
			Msg("duplicate webhook delivery skipped")
		return nil
	}

	evt, err := event.NewEvent(wh.Event, wh.Reference, wh.Channel, body)
	if err != nil {
		p.release(ctx, key)
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := p.events.Save(ctx, evt); err != nil {
		p.release(ctx, key)
		return fmt.Errorf("%w: journal event: %v", ErrRetryable, err)
	}

	if err := p.process(ctx, evt, wh); err != nil {
		p.release(ctx, key)
		return err
	}
	return nil
}

// process reconciles a journaled event and records the result on it. Only
// failures worth a redelivery are returned.
func (p *Processor) process(ctx context.Context, evt *event.Event, wh *provider.WebhookEvent) error {
	logger := log.With().
		Int64("event_id", evt.ID).
		Str("event", evt.Type).
		Str("reference", evt.Reference).
		Logger()

	_, applied, err := p.payments.HandleWebhook(ctx, wh)

	status := event.ProcessingCompleted
	var cause string
	switch {
	case err == nil && !applied:
		status = event.ProcessingIgnored
	case err == nil:
	case errors.Is(err, svcpayment.ErrPersistence):
		cause = err.Error()
		p.mark(ctx, evt.ID, event.ProcessingFailed, cause)
		logger.Error().Err(err).Msg("webhook reconciliation failed")
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	case applied:
		// status committed, completion notice could not be assembled
		cause = err.Error()
		logger.Warn().Err(err).Msg("webhook applied with enrichment failure")
	default:
		status = event.ProcessingFailed
		cause = err.Error()
		logger.Warn().Err(err).Msg("webhook not applied")
	}

	p.mark(ctx, evt.ID, status, cause)
	logger.Info().Str("processing_status", string(status)).Msg("webhook processed")
	return nil
}

func (p *Processor) mark(ctx context.Context, id int64, status event.ProcessingStatus, cause string) {
	if err := p.events.MarkProcessed(ctx, id, status, cause); err != nil {
		log.Error().Err(err).Int64("event_id", id).Msg("failed to mark event processed")
	}
}

func (p *Processor) release(ctx context.Context, key string) {
	if err := p.dedup.Release(context.WithoutCancel(ctx), key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to release webhook dedup key")
	}
}
