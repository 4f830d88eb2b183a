package payment

import (
	"context"
	"net/http"
)

// Payment status values stored on payment rows.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
	StatusExpired = "expired"
)

// IntentRequest captures the information required to open a payment intent with a provider.
type IntentRequest struct {
	OrderID         string `json:"orderId"`
	Amount          int64  `json:"amount"`
	Channel         string `json:"channel,omitempty"`
	ExpiresAtSec    int    `json:"expiresAtSec"`
	CallbackBaseURL string `json:"callbackBaseUrl,omitempty"`
}

// IntentResponse represents the minimal information returned by a provider when creating an intent.
type IntentResponse struct {
	Provider    string `json:"provider"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// WebhookVerifyResult contains the normalised data extracted from a webhook
// notification after signature verification. EventID identifies the delivery
// for replay protection.
type WebhookVerifyResult struct {
	Valid           bool
	EventID         string
	OrderID         string
	Amount          int64
	Status          string
	ProviderPayload []byte
	Err             error
}

// Provider abstracts the operations required from an upstream payment provider.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error)
	VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error)
}
