package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is one payment attempt against the gateway for an order.
type Payment struct {
	ID                   string          `json:"id"`
	OrderID              string          `json:"orderId"`
	UserID               string          `json:"userId"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Status               Status          `json:"status"`
	Method               string          `json:"method,omitempty"`
	TransactionReference string          `json:"transactionReference"`
	PaidAt               *time.Time      `json:"paidAt,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// Status represents payment status
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// MethodUnknown is recorded when the gateway reports no channel.
const MethodUnknown = "unknown"

// Outcome is what the gateway said about a transaction, regardless of which
// path (verify call, webhook, sweep) delivered it.
type Outcome struct {
	Success bool
	Channel string
	Source  Source
}

// Source names the entry point that produced an Outcome.
type Source string

const (
	SourceVerify  Source = "verify"
	SourceWebhook Source = "webhook"
	SourceSweep   Source = "sweep"
)

// Status resolves the terminal status this outcome maps to.
func (o Outcome) Status() Status {
	if o.Success {
		return StatusCompleted
	}
	return StatusFailed
}

// Method returns the channel label to record, defaulting to MethodUnknown.
func (o Outcome) Method() string {
	if ch := strings.TrimSpace(o.Channel); ch != "" {
		return ch
	}
	return MethodUnknown
}

// NewPending creates a new pending payment with validation
func NewPending(orderID, userID string, amount decimal.Decimal, currency, reference string) (*Payment, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("order ID is required")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %s", amount)
	}
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("transaction reference is required")
	}

	now := time.Now().UTC()
	return &Payment{
		ID:                   uuid.NewString(),
		OrderID:              orderID,
		UserID:               userID,
		Amount:               amount,
		Currency:             currency,
		Status:               StatusPending,
		TransactionReference: reference,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from → to is a permitted transition.
func CanTransition(from, to Status) bool {
	return from == StatusPending && to.IsTerminal()
}

// IsTerminal checks if the payment has reached completed or failed.
func (p *Payment) IsTerminal() bool {
	return p.Status.IsTerminal()
}

// Resolve applies a terminal outcome in memory. It refuses anything other
// than pending → terminal.
func (p *Payment) Resolve(o Outcome, at time.Time) error {
	to := o.Status()
	if !CanTransition(p.Status, to) {
		return fmt.Errorf("payment %s cannot move from %s to %s", p.ID, p.Status, to)
	}
	p.Status = to
	p.Method = o.Method()
	p.PaidAt = &at
	p.UpdatedAt = at
	return nil
}

// MinorUnits converts a decimal amount to the gateway's smallest currency
// unit, i.e. amount * 10^exponent rounded half away from zero.
func MinorUnits(amount decimal.Decimal, exponent int32) int64 {
	return amount.Shift(exponent).Round(0).IntPart()
}
