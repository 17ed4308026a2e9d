package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payrelay/internal/domain/payment"
	"payrelay/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, order_id, user_id, amount::text, currency, status, method,
	transaction_reference, paid_at, created_at, updated_at`

// paymentRepository implements PaymentRepository on top of pgxpool
type paymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *pgxpool.Pool) repositories.PaymentRepository {
	return &paymentRepository{db: db}
}

// Create inserts a pending payment. Uniqueness of the reference and of the
// pending attempt per order is enforced by the indexes in schema.go.
func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (id, order_id, user_id, amount, currency, status, method,
		                      transaction_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.OrderID, p.UserID, p.Amount.String(), p.Currency, string(p.Status),
		p.Method, p.TransactionReference, p.CreatedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return translate(err)
}

// FindByID finds a payment by ID
func (r *paymentRepository) FindByID(ctx context.Context, id string) (*payment.Payment, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, pid)
	return scanPayment(row)
}

// FindByReference finds a payment by its gateway transaction reference
func (r *paymentRepository) FindByReference(ctx context.Context, reference string) (*payment.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_reference = $1`, reference)
	return scanPayment(row)
}

func (r *paymentRepository) FindLatestByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		  FROM payments
		 WHERE order_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, orderID)
	return scanPayment(row)
}

func (r *paymentRepository) FindPendingByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		  FROM payments
		 WHERE order_id = $1 AND status = 'pending'`, orderID)
	return scanPayment(row)
}

func (r *paymentRepository) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*payment.Payment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+paymentColumns+`
		  FROM payments
		 WHERE status = 'pending' AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Resolve is a compare-and-swap on status = 'pending'. Exactly one caller
// per reference sees applied=true.
func (r *paymentRepository) Resolve(
	ctx context.Context,
	reference string,
	status payment.Status,
	method string,
	at time.Time,
) (*payment.Payment, bool, error) {
	if !payment.CanTransition(payment.StatusPending, status) {
		return nil, false, fmt.Errorf("resolve: %s is not a terminal status", status)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE payments
		   SET status = $2, method = $3, paid_at = $4, updated_at = now()
		 WHERE transaction_reference = $1 AND status = 'pending'
		RETURNING `+paymentColumns,
		reference, string(status), method, at)
	p, err := scanPayment(row)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, err
	}

	// Either the reference is unknown or the row is already terminal.
	existing, err := r.FindByReference(ctx, reference)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// scanPayment scans a single row into payment domain object
func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var (
		p      payment.Payment
		amount string
		status string
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &p.UserID, &amount, &p.Currency, &status, &p.Method,
		&p.TransactionReference, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	p.Status = payment.Status(status)
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("payment %s: bad amount %q: %w", p.ID, amount, err)
	}
	return &p, nil
}
