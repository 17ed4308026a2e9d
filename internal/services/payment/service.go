package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"payrelay/internal/domain/event"
	"payrelay/internal/domain/payment"
	"payrelay/internal/metrics"
	"payrelay/internal/notify"
	"payrelay/internal/provider"
	"payrelay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Config tunes the lifecycle manager. It is fixed at construction.
type Config struct {
	Currency          string
	MinorUnitExponent int32
	GatewayTimeout    time.Duration
	IncludeContacts   bool
	IncludeProducts   bool
}

// Service owns the payment lifecycle: initiation, reconciliation of gateway
// outcomes, and lookups.
type Service struct {
	cfg      Config
	payments repositories.PaymentRepository
	orders   repositories.OrderStore
	gateway  provider.Gateway
	notifier notify.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a new payment service
func NewService(
	cfg Config,
	payments repositories.PaymentRepository,
	orders repositories.OrderStore,
	gateway provider.Gateway,
	notifier notify.Notifier,
	m *metrics.Metrics,
) *Service {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	return &Service{
		cfg:      cfg,
		payments: payments,
		orders:   orders,
		gateway:  gateway,
		notifier: notifier,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// InitiateResult is what a caller needs to send the buyer to checkout.
type InitiateResult struct {
	Payment    *payment.Payment
	SessionURL string
}

// Initiate opens a gateway session for the order and records a pending
// payment. The gateway is called before anything is written, so a gateway
// failure leaves no local state behind.
func (s *Service) Initiate(ctx context.Context, orderID, email string) (*InitiateResult, error) {
	const op = "initiate"
	res, err := s.initiate(ctx, orderID, email)
	if err != nil {
		s.metrics.Initiated(resultOf(err))
		return nil, err
	}
	s.metrics.Initiated("ok")
	log.Info().
		Str("payment_id", res.Payment.ID).
		Str("order_id", res.Payment.OrderID).
		Str("reference", res.Payment.TransactionReference).
		Str("amount", res.Payment.Amount.String()).
		Msg(op + ": payment pending")
	return res, nil
}

func (s *Service) initiate(ctx context.Context, orderID, email string) (*InitiateResult, error) {
	const op = "initiate"
	orderID = strings.TrimSpace(orderID)
	email = strings.TrimSpace(email)
	if orderID == "" || email == "" {
		return nil, newError(op, ErrInvalidInput, "missing required fields", nil)
	}

	ord, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookupError(op, "order not found", err)
	}

	_, err = s.payments.FindPendingByOrderID(ctx, orderID)
	switch {
	case err == nil:
		return nil, newError(op, ErrConflict, "a payment is already pending for this order", nil)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, newError(op, ErrPersistence, "failed to check pending payments", err)
	}

	if !ord.TotalPrice.IsPositive() {
		return nil, newError(op, ErrInvalidAmount, "invalid order amount", nil)
	}
	if strings.TrimSpace(ord.UserID) == "" {
		// the order has no owner to charge
		return nil, newError(op, ErrNotFound, "user not found", nil)
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	sess, err := s.gateway.CreateSession(gctx, provider.SessionReq{
		Email:       email,
		AmountMinor: payment.MinorUnits(ord.TotalPrice, s.cfg.MinorUnitExponent),
		Currency:    s.cfg.Currency,
		OrderID:     orderID,
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("gateway session failed")
		return nil, newError(op, ErrGateway, "payment gateway request failed", err)
	}
	if sess == nil || strings.TrimSpace(sess.Reference) == "" {
		return nil, newError(op, ErrGateway, "failed to generate transaction reference", nil)
	}

	p, err := payment.NewPending(orderID, ord.UserID, ord.TotalPrice, s.cfg.Currency, sess.Reference)
	if err != nil {
		return nil, newError(op, ErrInvalidInput, err.Error(), nil)
	}
	if err := s.payments.Create(ctx, p); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicatePending):
			// lost the race against a concurrent initiation
			return nil, newError(op, ErrConflict, "a payment is already pending for this order", err)
		case errors.Is(err, repositories.ErrDuplicateReference):
			return nil, newError(op, ErrGateway, "gateway reused a transaction reference", err)
		}
		log.Error().Err(err).
			Str("order_id", orderID).
			Str("reference", sess.Reference).
			Msg("failed to save pending payment")
		return nil, newError(op, ErrPersistence, "failed to persist payment", err)
	}

	return &InitiateResult{Payment: p, SessionURL: sess.URL}, nil
}

// Verify asks the gateway for the outcome of reference and reconciles it.
// Terminal payments are returned as stored without calling the gateway.
func (s *Service) Verify(ctx context.Context, reference string) (*payment.Payment, bool, error) {
	const op = "verify"
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, false, newError(op, ErrInvalidInput, "missing transaction reference", nil)
	}

	p, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, false, lookupError(op, "payment not found", err)
	}
	if p.IsTerminal() {
		s.metrics.Reconciled(string(payment.SourceVerify), "noop")
		return p, false, nil
	}

	return s.verifyPending(ctx, reference, payment.SourceVerify)
}

func (s *Service) verifyPending(ctx context.Context, reference string, source payment.Source) (*payment.Payment, bool, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	tx, err := s.gateway.GetTransaction(gctx, reference)
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("gateway verify failed")
		return nil, false, newError("verify", ErrGateway, "payment verification failed", err)
	}

	return s.Reconcile(ctx, reference, payment.Outcome{
		Success: tx.Succeeded(),
		Channel: tx.Channel,
		Source:  source,
	})
}

// HandleWebhook reconciles a decoded gateway callback.
func (s *Service) HandleWebhook(ctx context.Context, evt *provider.WebhookEvent) (*payment.Payment, bool, error) {
	if evt == nil || strings.TrimSpace(evt.Reference) == "" {
		return nil, false, newError("webhook", ErrInvalidInput, "webhook missing transaction reference", nil)
	}
	return s.Reconcile(ctx, evt.Reference, payment.Outcome{
		Success: evt.Event == event.TypeChargeSuccess,
		Channel: evt.Channel,
		Source:  payment.SourceWebhook,
	})
}

// Reconcile is the single path through which a payment reaches a terminal
// state. The first caller to move the payment off pending wins; every later
// call, whatever its outcome, returns the stored record with applied=false
// and publishes nothing.
//
// When enrichment for the completion notice fails the returned error is
// ErrNotFound but the status change stays committed and applied is true.
func (s *Service) Reconcile(ctx context.Context, reference string, o payment.Outcome) (*payment.Payment, bool, error) {
	const op = "reconcile"
	source := string(o.Source)

	current, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		return nil, false, lookupError(op, "payment not found", err)
	}
	if current.IsTerminal() {
		s.metrics.Reconciled(source, "noop")
		log.Info().
			Str("payment_id", current.ID).
			Str("reference", reference).
			Str("status", string(current.Status)).
			Str("source", source).
			Msg("reconcile: payment already final")
		return current, false, nil
	}

	p, applied, err := s.payments.Resolve(ctx, reference, o.Status(), o.Method(), s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, newError(op, ErrNotFound, "payment not found", err)
		}
		log.Error().Err(err).Str("reference", reference).Msg("failed to update payment status")
		return nil, false, newError(op, ErrPersistence, "failed to update payment status", err)
	}
	if !applied {
		s.metrics.Reconciled(source, "noop")
		log.Info().
			Str("payment_id", p.ID).
			Str("reference", reference).
			Str("status", string(p.Status)).
			Str("source", source).
			Msg("reconcile: lost race, payment already final")
		return p, false, nil
	}

	s.metrics.Reconciled(source, string(p.Status))
	log.Info().
		Str("payment_id", p.ID).
		Str("order_id", p.OrderID).
		Str("reference", reference).
		Str("status", string(p.Status)).
		Str("method", p.Method).
		Str("source", source).
		Msg("reconcile: payment resolved")

	if p.Status != payment.StatusCompleted || s.notifier == nil {
		return p, true, nil
	}

	evt, err := s.buildNotification(ctx, p)
	if err != nil {
		log.Warn().Err(err).
			Str("payment_id", p.ID).
			Str("order_id", p.OrderID).
			Msg("notification enrichment failed; status update kept")
		return p, true, err
	}
	s.notifier.Notify(ctx, *evt)
	return p, true, nil
}

// GetByID returns the payment with the given id.
func (s *Service) GetByID(ctx context.Context, id string) (*payment.Payment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, newError("get", ErrInvalidInput, "missing payment id", nil)
	}
	p, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("get", "payment not found", err)
	}
	return p, nil
}

// GetByOrderID returns the most recent payment for the order.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, newError("get", ErrInvalidInput, "missing order id", nil)
	}
	p, err := s.payments.FindLatestByOrderID(ctx, orderID)
	if err != nil {
		return nil, lookupError("get", "payment not found", err)
	}
	return p, nil
}

// SweepStale verifies pending payments created before olderThan.
func (s *Service) SweepStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	stale, err := s.payments.FindStalePending(ctx, olderThan, limit)
	if err != nil {
		return 0, newError("sweep", ErrPersistence, "failed to list pending payments", err)
	}

	resolved := 0
	for _, p := range stale {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		_, applied, err := s.verifyPending(ctx, p.TransactionReference, payment.SourceSweep)
		if err != nil {
			log.Error().Err(err).
				Str("payment_id", p.ID).
				Str("reference", p.TransactionReference).
				Msg("sweep: verify failed")
		}
		if applied {
			resolved++
		}
	}
	return resolved, nil
}

// lookupError maps a store lookup failure onto NotFound or Persistence.
func lookupError(op, notFoundMsg string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return newError(op, ErrNotFound, notFoundMsg, err)
	}
	return newError(op, ErrPersistence, "store lookup failed", err)
}

func resultOf(err error) string {
	for _, k := range []struct {
		kind  error
		label string
	}{
		{ErrInvalidInput, "invalid_input"},
		{ErrNotFound, "not_found"},
		{ErrConflict, "conflict"},
		{ErrInvalidAmount, "invalid_amount"},
		{ErrGateway, "gateway_error"},
		{ErrPersistence, "persistence_error"},
	} {
		if errors.Is(err, k.kind) {
			return k.label
		}
	}
	return "error"
}
