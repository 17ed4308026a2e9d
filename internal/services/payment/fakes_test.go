package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"payrelay/internal/domain/order"
	"payrelay/internal/domain/payment"
	"payrelay/internal/notify"
	"payrelay/internal/provider"
	"payrelay/internal/store/repositories"

	"github.com/stretchr/testify/mock"
)

// memLedger mirrors the Postgres rules: one pending payment per order,
// unique references, and a resolve that only writes while pending.
type memLedger struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*ledgerRow
}

type ledgerRow struct {
	p   payment.Payment
	seq int
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]*ledgerRow)}
}

var _ repositories.PaymentRepository = (*memLedger)(nil)

func (l *memLedger) Create(_ context.Context, p *payment.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.p.TransactionReference == p.TransactionReference {
			return repositories.ErrDuplicateReference
		}
		if r.p.OrderID == p.OrderID && r.p.Status == payment.StatusPending {
			return repositories.ErrDuplicatePending
		}
	}
	l.seq++
	l.rows[p.ID] = &ledgerRow{p: *p, seq: l.seq}
	return nil
}

func (l *memLedger) FindByID(_ context.Context, id string) (*payment.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := r.p
	return &cp, nil
}

func (l *memLedger) find(match func(*payment.Payment) bool) (*payment.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var best *ledgerRow
	for _, r := range l.rows {
		if match(&r.p) && (best == nil || r.seq > best.seq) {
			best = r
		}
	}
	if best == nil {
		return nil, repositories.ErrNotFound
	}
	cp := best.p
	return &cp, nil
}

func (l *memLedger) FindByReference(_ context.Context, ref string) (*payment.Payment, error) {
	return l.find(func(p *payment.Payment) bool { return p.TransactionReference == ref })
}

func (l *memLedger) FindLatestByOrderID(_ context.Context, orderID string) (*payment.Payment, error) {
	return l.find(func(p *payment.Payment) bool { return p.OrderID == orderID })
}

func (l *memLedger) FindPendingByOrderID(_ context.Context, orderID string) (*payment.Payment, error) {
	return l.find(func(p *payment.Payment) bool {
		return p.OrderID == orderID && p.Status == payment.StatusPending
	})
}

func (l *memLedger) FindStalePending(_ context.Context, olderThan time.Time, limit int) ([]*payment.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*payment.Payment
	for _, r := range l.rows {
		if r.p.Status == payment.StatusPending && r.p.CreatedAt.Before(olderThan) {
			cp := r.p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *memLedger) Resolve(_ context.Context, ref string, status payment.Status, method string, at time.Time) (*payment.Payment, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.p.TransactionReference != ref {
			continue
		}
		o := payment.Outcome{Success: status == payment.StatusCompleted, Channel: method}
		if err := r.p.Resolve(o, at); err != nil {
			cp := r.p
			return &cp, false, nil
		}
		cp := r.p
		return &cp, true, nil
	}
	return nil, false, repositories.ErrNotFound
}

// seqGateway hands out a fresh reference per session unless reference is set.
type seqGateway struct {
	n         atomic.Int64
	sessions  atomic.Int64
	verifies  atomic.Int64
	tx        provider.Transaction
	err       error
	reference *string

	mu      sync.Mutex
	lastReq provider.SessionReq
}

func (g *seqGateway) CreateSession(_ context.Context, req provider.SessionReq) (*provider.Session, error) {
	g.sessions.Add(1)
	g.mu.Lock()
	g.lastReq = req
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	ref := fmt.Sprintf("ref-%s-%d", req.OrderID, g.n.Add(1))
	if g.reference != nil {
		ref = *g.reference
	}
	return &provider.Session{URL: "https://checkout.test/" + ref, Reference: ref}, nil
}

func (g *seqGateway) lastSession() provider.SessionReq {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastReq
}

func (g *seqGateway) GetTransaction(_ context.Context, ref string) (*provider.Transaction, error) {
	g.verifies.Add(1)
	if g.err != nil {
		return nil, g.err
	}
	tx := g.tx
	tx.Reference = ref
	return &tx, nil
}

type orderStoreMock struct{ mock.Mock }

func (m *orderStoreMock) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *orderStoreMock) GetUser(ctx context.Context, id string) (*order.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*order.User)
	return u, args.Error(1)
}

func (m *orderStoreMock) GetProduct(ctx context.Context, id string) (*order.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*order.Product)
	return p, args.Error(1)
}

func (m *orderStoreMock) GetSeller(ctx context.Context, id string) (*order.Seller, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*order.Seller)
	return s, args.Error(1)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.StatusChanged
}

func (n *recordingNotifier) Notify(_ context.Context, evt notify.StatusChanged) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) sent() []notify.StatusChanged {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.StatusChanged(nil), n.events...)
}
