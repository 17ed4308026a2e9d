package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"payrelay/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Notifier hands a status change to the outbound channel without blocking
// the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, evt StatusChanged)
}

// Dispatcher sends each notification on its own goroutine bounded by a
// timeout. Failures are logged and counted, never returned.
type Dispatcher struct {
	pub     Publisher
	queue   string
	timeout time.Duration
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

func NewDispatcher(pub Publisher, queue string, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{pub: pub, queue: queue, timeout: timeout, metrics: m}
}

var _ Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) Notify(ctx context.Context, evt StatusChanged) {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("payment_id", evt.PaymentID).Msg("notification marshal failed")
		d.metrics.Notified(err)
		return
	}

	// detach from the request so the send outlives the response
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		err := d.pub.Publish(sendCtx, d.queue, []byte(evt.OrderID), payload)
		d.metrics.Notified(err)
		if err != nil {
			log.Error().Err(err).
				Str("queue", d.queue).
				Str("payment_id", evt.PaymentID).
				Str("order_id", evt.OrderID).
				Str("reference", evt.TransactionReference).
				Msg("failed to publish payment notification")
			return
		}
		log.Info().
			Str("queue", d.queue).
			Str("payment_id", evt.PaymentID).
			Str("order_id", evt.OrderID).
			Msg("payment notification published")
	}()
}

// Flush waits for in-flight sends or for ctx to expire.
func (d *Dispatcher) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
