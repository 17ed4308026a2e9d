package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"

	"payrelay/internal/provider"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw body.
const SignatureHeader = "x-paystack-signature"

// ValidateWebhook checks the body signature against the secret key. Lookup
// of the header is case-insensitive.
func (c *Client) ValidateWebhook(body []byte, headers map[string]string) error {
	var sig string
	for k, v := range headers {
		if strings.EqualFold(k, SignatureHeader) {
			sig = v
			break
		}
	}
	if sig == "" {
		return &provider.ProviderError{Code: provider.ErrInvalidSignature, Message: "missing webhook signature"}
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return &provider.ProviderError{Code: provider.ErrInvalidSignature, Message: "malformed webhook signature"}
	}
	if !hmac.Equal(got, Sign(c.cfg.SecretKey, body)) {
		return &provider.ProviderError{Code: provider.ErrInvalidSignature, Message: "webhook signature mismatch"}
	}
	return nil
}

// Sign computes the signature Paystack attaches to a webhook body.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// ParseWebhook decodes the {event, data} envelope.
func (c *Client) ParseWebhook(body []byte) (*provider.WebhookEvent, error) {
	var in struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
			Channel   string `json:"channel"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, &provider.ProviderError{Code: provider.ErrBadPayload, Message: "invalid webhook json", ProviderErr: err.Error()}
	}
	if in.Event == "" || in.Data.Reference == "" {
		return nil, &provider.ProviderError{Code: provider.ErrBadPayload, Message: "webhook missing event or reference"}
	}
	return &provider.WebhookEvent{
		Event:     in.Event,
		Reference: in.Data.Reference,
		Channel:   in.Data.Channel,
		Status:    in.Data.Status,
		RawJSON:   body,
	}, nil
}
