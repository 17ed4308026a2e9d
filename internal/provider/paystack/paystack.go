// Package paystack talks to the Paystack transaction API.
package paystack

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"payrelay/internal/provider"
	"payrelay/internal/provider/base"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://api.paystack.co"

type Config struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
}

// Client implements provider.Gateway and provider.WebhookVerifier.
type Client struct {
	cfg        Config
	httpClient *base.HTTPClient
}

var (
	_ provider.Gateway         = (*Client)(nil)
	_ provider.WebhookVerifier = (*Client)(nil)
)

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	hc := base.NewHTTPClient("paystack", cfg.Timeout)
	hc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	return &Client{cfg: cfg, httpClient: hc}
}

// envelope is the shape every Paystack response shares.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Channel   string `json:"channel"`
	Amount    int64  `json:"amount"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (c *Client) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.cfg.SecretKey}
}

// CreateSession calls /transaction/initialize.
func (c *Client) CreateSession(ctx context.Context, req provider.SessionReq) (*provider.Session, error) {
	body := map[string]any{
		"email":  req.Email,
		"amount": req.AmountMinor,
	}
	if req.Currency != "" {
		body["currency"] = req.Currency
	}
	if cb := firstNonEmpty(req.CallbackURL, c.cfg.CallbackURL); cb != "" {
		body["callback_url"] = cb
	}
	if req.OrderID != "" {
		body["metadata"] = map[string]string{"order_id": req.OrderID}
	}

	resp, err := c.httpClient.PostJSON(ctx, "/transaction/initialize", body, c.authHeaders())
	if err != nil {
		return nil, &provider.ProviderError{Code: provider.ErrProviderDown, Message: "initialize transaction", ProviderErr: err.Error()}
	}

	var out envelope[initializeData]
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Data == nil || out.Data.Reference == "" {
		return nil, &provider.ProviderError{Code: provider.ErrNoReference, Message: "gateway returned no transaction reference"}
	}

	log.Debug().Str("reference", out.Data.Reference).Msg("paystack session created")
	return &provider.Session{
		URL:        out.Data.AuthorizationURL,
		Reference:  out.Data.Reference,
		AccessCode: out.Data.AccessCode,
	}, nil
}

// GetTransaction calls /transaction/verify/:reference.
func (c *Client) GetTransaction(ctx context.Context, reference string) (*provider.Transaction, error) {
	resp, err := c.httpClient.Get(ctx, "/transaction/verify/"+url.PathEscape(reference), c.authHeaders())
	if err != nil {
		return nil, &provider.ProviderError{Code: provider.ErrProviderDown, Message: "verify transaction", ProviderErr: err.Error()}
	}

	var out envelope[verifyData]
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, &provider.ProviderError{Code: provider.ErrNoReference, Message: "gateway returned no transaction"}
	}
	return &provider.Transaction{
		Reference:     firstNonEmpty(out.Data.Reference, reference),
		Status:        out.Data.Status,
		Channel:       out.Data.Channel,
		CustomerEmail: out.Data.Customer.Email,
		AmountMinor:   out.Data.Amount,
	}, nil
}

func decode[T any](resp *base.HTTPResponse, out *envelope[T]) error {
	// non-2xx bodies still carry a message worth surfacing
	_ = resp.Decode(out)
	if !resp.IsSuccess() {
		return &provider.ProviderError{
			Code:        provider.ErrRejected,
			Message:     fmt.Sprintf("gateway responded %d", resp.StatusCode),
			ProviderErr: out.Message,
		}
	}
	if !out.Status {
		return &provider.ProviderError{Code: provider.ErrRejected, Message: "gateway rejected request", ProviderErr: out.Message}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
