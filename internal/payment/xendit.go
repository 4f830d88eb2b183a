package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/backend-borong/internal/common"
)

// Xendit implements the Provider interface for a simplified invoice/checkout integration.
type Xendit struct {
	SecretKey string
	BaseURL   string
}

// CreateIntent builds a deterministic invoice identifier for testing purposes.
func (x Xendit) CreateIntent(_ context.Context, req IntentRequest) (IntentResponse, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return IntentResponse{}, errors.New("order id is required")
	}
	token := fmt.Sprintf("xendit-%s", req.OrderID)
	expiresAt := time.Now().Add(time.Duration(req.ExpiresAtSec) * time.Second)
	host := strings.TrimRight(strings.TrimSpace(x.BaseURL), "/")
	if host == "" {
		host = "https://checkout-stub.xendit"
	}
	return IntentResponse{
		Provider:    "xendit",
		Token:       token,
		RedirectURL: fmt.Sprintf("%s/%s", host, token),
		ExpiresAt:   expiresAt.Unix(),
	}, nil
}

// VerifyWebhook validates the callback signature and normalises the payload.
func (x Xendit) VerifyWebhook(r *http.Request, body []byte) (WebhookVerifyResult, error) {
	expected := x.computeSignature(body)
	provided := strings.TrimSpace(r.Header.Get("x-callback-signature"))
	if expected == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return WebhookVerifyResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}

	var payload struct {
		ID         string      `json:"id"`
		ExternalID string      `json:"external_id"`
		Amount     json.Number `json:"amount"`
		Status     string      `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookVerifyResult{Valid: false, Err: err}, nil
	}
	if payload.ExternalID == "" {
		return WebhookVerifyResult{Valid: false, Err: errors.New("missing external id")}, nil
	}

	amount, _ := payload.Amount.Int64()
	if amount == 0 {
		if f, err := payload.Amount.Float64(); err == nil {
			amount = int64(f)
		}
	}

	eventID := strings.TrimSpace(payload.ID)
	if eventID == "" {
		eventID = common.Sha256Hex(string(body))
	}

	return WebhookVerifyResult{
		Valid:           true,
		EventID:         eventID,
		OrderID:         payload.ExternalID,
		Amount:          amount,
		Status:          normaliseXenditStatus(payload.Status),
		ProviderPayload: body,
	}, nil
}

func (x Xendit) computeSignature(body []byte) string {
	key := strings.TrimSpace(x.SecretKey)
	if key == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func normaliseXenditStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "settled", "success":
		return StatusPaid
	case "expired":
		return StatusExpired
	case "failed", "canceled":
		return StatusFailed
	default:
		return StatusPending
	}
}
