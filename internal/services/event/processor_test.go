package event

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"payrelay/internal/domain/event"
	"payrelay/internal/domain/payment"
	"payrelay/internal/provider"
	"payrelay/internal/provider/paystack"
	svcpayment "payrelay/internal/services/payment"
	"payrelay/internal/store/repositories"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "sk_test_secret"

type memJournal struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*event.Event
	saveErr error
}

func newMemJournal() *memJournal { return &memJournal{byID: make(map[int64]*event.Event)} }

func (j *memJournal) Save(_ context.Context, e *event.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.saveErr != nil {
		return j.saveErr
	}
	j.nextID++
	e.ID = j.nextID
	cp := *e
	j.byID[e.ID] = &cp
	return nil
}

func (j *memJournal) FindByID(_ context.Context, id int64) (*event.Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (j *memJournal) MarkProcessed(_ context.Context, id int64, status event.ProcessingStatus, cause string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	e.ProcessingStatus = status
	e.Error = cause
	return nil
}

func (j *memJournal) status(id int64) event.ProcessingStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.byID[id].ProcessingStatus
}

type memDedup struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
	err      error
}

func (d *memDedup) Claim(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.keys == nil {
		d.keys = make(map[string]bool)
	}
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *memDedup) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.keys, key)
	d.released = append(d.released, key)
	return nil
}

type webhookHandlerMock struct{ mock.Mock }

func (m *webhookHandlerMock) HandleWebhook(ctx context.Context, evt *provider.WebhookEvent) (*payment.Payment, bool, error) {
	args := m.Called(ctx, evt)
	p, _ := args.Get(0).(*payment.Payment)
	return p, args.Bool(1), args.Error(2)
}

func signed(body string) ([]byte, map[string]string) {
	b := []byte(body)
	return b, map[string]string{"X-Paystack-Signature": hex.EncodeToString(paystack.Sign(secret, b))}
}

const chargeSuccess = `{"event":"charge.success","data":{"reference":"ref-1","channel":"card","status":"success"}}`

func newTestProcessor(h WebhookHandler) (*Processor, *memJournal, *memDedup) {
	j := newMemJournal()
	d := &memDedup{}
	return NewProcessor(paystack.New(paystack.Config{SecretKey: secret}), j, d, h, nil), j, d
}

func TestIngest_RejectsBadSignature(t *testing.T) {
	h := new(webhookHandlerMock)
	p, j, _ := newTestProcessor(h)

	err := p.Ingest(context.Background(), []byte(chargeSuccess), map[string]string{"x-paystack-signature": "deadbeef"})
	require.ErrorIs(t, err, ErrInvalidSignature)

	err = p.Ingest(context.Background(), []byte(chargeSuccess), nil)
	require.ErrorIs(t, err, ErrInvalidSignature)

	require.Empty(t, j.byID)
	h.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything)
}

func TestIngest_RejectsBadPayload(t *testing.T) {
	h := new(webhookHandlerMock)
	p, j, _ := newTestProcessor(h)

	body, hdr := signed(`{"event":"charge.success","data":{}}`)
	err := p.Ingest(context.Background(), body, hdr)
	require.ErrorIs(t, err, ErrBadPayload)
	require.Empty(t, j.byID)
}

func TestIngest_JournalsAndReconciles(t *testing.T) {
	h := new(webhookHandlerMock)
	h.On("HandleWebhook", mock.Anything, mock.MatchedBy(func(e *provider.WebhookEvent) bool {
		return e.Reference == "ref-1" && e.Channel == "card" && e.Event == "charge.success"
	})).Return(&payment.Payment{Status: payment.StatusCompleted}, true, nil).Once()
	p, j, _ := newTestProcessor(h)

	body, hdr := signed(chargeSuccess)
	require.NoError(t, p.Ingest(context.Background(), body, hdr))
	require.Equal(t, event.ProcessingCompleted, j.status(1))

	// the redelivery is dropped before it reaches the ledger
	require.NoError(t, p.Ingest(context.Background(), body, hdr))
	require.Len(t, j.byID, 1)
	h.AssertExpectations(t)
}

func TestIngest_UnknownReferenceIsAcknowledged(t *testing.T) {
	h := new(webhookHandlerMock)
	notFound := &svcpayment.ServiceError{Op: "reconcile", Kind: svcpayment.ErrNotFound, Message: "payment not found"}
	h.On("HandleWebhook", mock.Anything, mock.Anything).Return(nil, false, notFound)
	p, j, _ := newTestProcessor(h)

	body, hdr := signed(chargeSuccess)
	require.NoError(t, p.Ingest(context.Background(), body, hdr))
	require.Equal(t, event.ProcessingFailed, j.status(1))
}

func TestIngest_PersistenceFailureReleasesKey(t *testing.T) {
	h := new(webhookHandlerMock)
	dbErr := &svcpayment.ServiceError{Op: "reconcile", Kind: svcpayment.ErrPersistence, Message: "failed", Err: errors.New("conn reset")}
	h.On("HandleWebhook", mock.Anything, mock.Anything).Return(nil, false, dbErr).Once()
	h.On("HandleWebhook", mock.Anything, mock.Anything).Return(&payment.Payment{Status: payment.StatusCompleted}, true, nil).Once()
	p, j, d := newTestProcessor(h)

	body, hdr := signed(chargeSuccess)
	err := p.Ingest(context.Background(), body, hdr)
	require.ErrorIs(t, err, ErrRetryable)
	require.Equal(t, []string{"charge.success:ref-1"}, d.released)
	require.Equal(t, event.ProcessingFailed, j.status(1))

	// the gateway's retry goes through
	require.NoError(t, p.Ingest(context.Background(), body, hdr))
	require.Equal(t, event.ProcessingCompleted, j.status(2))
}

func TestIngest_JournalFailureIsRetryable(t *testing.T) {
	h := new(webhookHandlerMock)
	p, j, d := newTestProcessor(h)
	j.saveErr = errors.New("db down")

	body, hdr := signed(chargeSuccess)
	require.ErrorIs(t, p.Ingest(context.Background(), body, hdr), ErrRetryable)
	require.Len(t, d.released, 1)
	h.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything)
}

func TestIngest_DedupOutageFailsOpen(t *testing.T) {
	h := new(webhookHandlerMock)
	h.On("HandleWebhook", mock.Anything, mock.Anything).Return(&payment.Payment{Status: payment.StatusCompleted}, false, nil)
	p, j, d := newTestProcessor(h)
	d.err = errors.New("redis unavailable")

	body, hdr := signed(chargeSuccess)
	require.NoError(t, p.Ingest(context.Background(), body, hdr))
	require.Equal(t, event.ProcessingIgnored, j.status(1))
}

func TestReplay(t *testing.T) {
	h := new(webhookHandlerMock)
	h.On("HandleWebhook", mock.Anything, mock.Anything).Return(&payment.Payment{Status: payment.StatusCompleted}, true, nil).Once()
	h.On("HandleWebhook", mock.Anything, mock.Anything).Return(&payment.Payment{Status: payment.StatusCompleted}, false, nil)
	p, j, _ := newTestProcessor(h)

	body, hdr := signed(chargeSuccess)
	require.NoError(t, p.Ingest(context.Background(), body, hdr))

	resp, err := p.Replay(context.Background(), ReplayRequest{EventIDs: []int64{1, 42}})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Replayed)
	require.Equal(t, 1, resp.Failed)
	require.Equal(t, []int64{42}, resp.Missing)
	require.Equal(t, event.ProcessingIgnored, j.status(1))

	_, err = p.Replay(context.Background(), ReplayRequest{EventIDs: make([]int64, maxReplayBatch+1)})
	require.ErrorIs(t, err, ErrTooManyEvents)
}

func TestNewProcessor_NilDeduperProcessesEveryDelivery(t *testing.T) {
	h := new(webhookHandlerMock)
	h.On("HandleWebhook", mock.Anything, mock.Anything).Return(&payment.Payment{Status: payment.StatusCompleted}, false, nil).Twice()
	j := newMemJournal()
	p := NewProcessor(paystack.New(paystack.Config{SecretKey: secret}), j, nil, h, nil)

	body, hdr := signed(chargeSuccess)
	require.NoError(t, p.Ingest(context.Background(), body, hdr))
	require.NoError(t, p.Ingest(context.Background(), body, hdr))
	require.Len(t, j.byID, 2)
	h.AssertExpectations(t)
}
