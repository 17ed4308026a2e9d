package repositories

import (
	"context"
	"errors"
	"time"

	"payrelay/internal/domain/event"
	"payrelay/internal/domain/order"
	"payrelay/internal/domain/payment"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicatePending is returned when an order already has a pending payment.
	ErrDuplicatePending = errors.New("pending payment already exists for order")
	// ErrDuplicateReference is returned when a transaction reference is reused.
	ErrDuplicateReference = errors.New("transaction reference already recorded")
)

// PaymentRepository defines the contract for the payment ledger
type PaymentRepository interface {
	// Create inserts a new pending payment. It fails with ErrDuplicatePending
	// when the order already has one and ErrDuplicateReference when the
	// reference is taken.
	Create(ctx context.Context, p *payment.Payment) error
	FindByID(ctx context.Context, id string) (*payment.Payment, error)
	FindByReference(ctx context.Context, reference string) (*payment.Payment, error)
	// FindLatestByOrderID returns the most recently created payment for the order.
	FindLatestByOrderID(ctx context.Context, orderID string) (*payment.Payment, error)
	FindPendingByOrderID(ctx context.Context, orderID string) (*payment.Payment, error)
	// FindStalePending lists pending payments created before olderThan, oldest first.
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*payment.Payment, error)
	// Resolve moves a pending payment to a terminal status. It only writes
	// while the stored status is still pending and returns applied=false
	// (and the stored record) when another caller got there first.
	Resolve(ctx context.Context, reference string, status payment.Status, method string, at time.Time) (p *payment.Payment, applied bool, err error)
}

// EventRepository defines the contract for the webhook event journal
type EventRepository interface {
	Save(ctx context.Context, e *event.Event) error
	FindByID(ctx context.Context, id int64) (*event.Event, error)
	MarkProcessed(ctx context.Context, id int64, status event.ProcessingStatus, cause string) error
}

// OrderStore is the read-only order/user catalog owned by other services.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
	GetUser(ctx context.Context, userID string) (*order.User, error)
	GetProduct(ctx context.Context, productID string) (*order.Product, error)
	GetSeller(ctx context.Context, sellerID string) (*order.Seller, error)
}

// Deduper remembers webhook deliveries that are already being handled.
type Deduper interface {
	// Claim returns true the first time key is seen within the retention window.
	Claim(ctx context.Context, key string) (bool, error)
	// Release forgets key so a redelivery is processed again.
	Release(ctx context.Context, key string) error
}
