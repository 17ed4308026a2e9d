package provider

import "context"

// Gateway is the external payment API that hosts checkout sessions and
// reports transaction outcomes.
type Gateway interface {
	// CreateSession opens a hosted payment page for email. amountMinor is in
	// the gateway's smallest currency unit.
	CreateSession(ctx context.Context, req SessionReq) (*Session, error)
	// GetTransaction reports the gateway's view of a transaction by reference.
	GetTransaction(ctx context.Context, reference string) (*Transaction, error)
}

// WebhookVerifier authenticates and decodes gateway webhook deliveries.
type WebhookVerifier interface {
	ValidateWebhook(body []byte, headers map[string]string) error
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

type SessionReq struct {
	Email       string `json:"email"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
	OrderID     string `json:"-"`
}

type Session struct {
	URL        string `json:"url"`
	Reference  string `json:"reference"`
	AccessCode string `json:"access_code,omitempty"`
}

type Transaction struct {
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	Channel       string `json:"channel"`
	CustomerEmail string `json:"customer_email"`
	AmountMinor   int64  `json:"amount"`
}

// TransactionSuccess is the status the gateway reports for a settled charge.
const TransactionSuccess = "success"

// Succeeded reports whether the gateway considers the transaction paid.
func (t *Transaction) Succeeded() bool { return t.Status == TransactionSuccess }

// WebhookEvent is the decoded envelope of a gateway callback.
type WebhookEvent struct {
	Event     string
	Reference string
	Channel   string
	Status    string
	RawJSON   []byte
}

// ProviderError carries the gateway's own failure details.
type ProviderError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	ProviderErr string `json:"provider_error,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.ProviderErr != "" {
		return e.Message + ": " + e.ProviderErr
	}
	return e.Message
}

// Error codes
const (
	ErrInvalidSignature = "invalid_signature"
	ErrBadPayload       = "bad_payload"
	ErrProviderDown     = "provider_down"
	ErrRejected         = "rejected"
	ErrNoReference      = "no_reference"
)
