package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-borong/internal/cart"
	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/obs"
	"github.com/noah-isme/backend-borong/internal/order"
)

type intentQuerier interface {
	GetOrderByID(ctx context.Context, id pgtype.UUID) (db.Order, error)
	GetPaymentByOrder(ctx context.Context, orderID pgtype.UUID) (db.Payment, error)
	CreatePayment(ctx context.Context, arg db.CreatePaymentParams) (db.Payment, error)
}

// Intent is the client-facing view of an open payment intent.
type Intent struct {
	PaymentID   string    `json:"paymentId"`
	Provider    string    `json:"provider"`
	Token       string    `json:"token,omitempty"`
	RedirectURL string    `json:"redirectUrl,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Reused      bool      `json:"-"`
}

type intentPayload struct {
	Request  IntentRequest  `json:"request"`
	Response IntentResponse `json:"response"`
}

// Service coordinates payment intents and status retrieval. Intents charge the
// order's booking total; the bracket price is settled outside the payment flow.
type Service struct {
	Q               intentQuerier
	Provider        Provider
	IntentTTL       time.Duration
	CallbackBaseURL string
}

// CreateIntent creates (or reuses) a payment intent for the provided order.
func (s *Service) CreateIntent(ctx context.Context, orderID string, channel string) (Intent, error) {
	var zero Intent
	if s == nil || s.Q == nil || s.Provider == nil {
		return zero, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CreateIntent")
	defer span.End()

	providerName := inferProviderName(s.Provider)
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.provider", providerName),
			attribute.String("payment.intent.result", result),
		)
		if obs.PaymentIntentTotal != nil {
			obs.PaymentIntentTotal.WithLabelValues(providerName, result).Inc()
		}
	}()

	ttl := s.IntentTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	orderUUID, err := cart.ToUUID(orderID)
	if err != nil {
		return zero, fmt.Errorf("invalid order id: %w", err)
	}
	span.SetAttributes(attribute.String("order.id", orderID))
	ord, err := s.Q.GetOrderByID(ctx, orderUUID)
	if err != nil {
		return zero, err
	}
	if ord.Status != order.StatusPendingPayment {
		return zero, fmt.Errorf("order status %s does not allow new intents", ord.Status)
	}

	existing, err := s.Q.GetPaymentByOrder(ctx, orderUUID)
	if err == nil {
		if existing.Status == StatusPaid {
			return zero, errors.New("order already paid")
		}
		if existing.Status == StatusPending {
			var stored intentPayload
			if json.Unmarshal(existing.Payload, &stored) == nil && stored.Response.Token != "" {
				expiresAt := time.Unix(stored.Response.ExpiresAt, 0)
				if expiresAt.After(time.Now()) {
					providerName = normaliseLabel(existing.Provider)
					result = "reused"
					return Intent{
						PaymentID:   cart.UUIDString(existing.ID),
						Provider:    existing.Provider,
						Token:       stored.Response.Token,
						RedirectURL: stored.Response.RedirectURL,
						ExpiresAt:   expiresAt,
						Reused:      true,
					}, nil
				}
			}
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return zero, err
	}

	req := IntentRequest{
		OrderID:         orderID,
		Amount:          ord.Total,
		Channel:         channel,
		ExpiresAtSec:    int(ttl.Seconds()),
		CallbackBaseURL: s.CallbackBaseURL,
	}
	resp, err := s.Provider.CreateIntent(ctx, req)
	if err != nil {
		span.RecordError(err)
		return zero, err
	}
	if resp.Provider != "" {
		providerName = normaliseLabel(resp.Provider)
	}
	if resp.ExpiresAt <= 0 {
		resp.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	payload, err := json.Marshal(intentPayload{Request: req, Response: resp})
	if err != nil {
		return zero, err
	}
	payment, err := s.Q.CreatePayment(ctx, db.CreatePaymentParams{
		OrderID:     orderUUID,
		Provider:    providerName,
		ProviderRef: pgtype.Text{String: resp.Token, Valid: strings.TrimSpace(resp.Token) != ""},
		Status:      StatusPending,
		Amount:      ord.Total,
		Payload:     payload,
	})
	if err != nil {
		return zero, err
	}
	result = "success"
	return Intent{
		PaymentID:   cart.UUIDString(payment.ID),
		Provider:    payment.Provider,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		ExpiresAt:   time.Unix(resp.ExpiresAt, 0),
	}, nil
}

// ConsolidatedStatus returns the best-known payment status for an order.
func (s *Service) ConsolidatedStatus(ctx context.Context, orderID string) (string, error) {
	if s == nil || s.Q == nil {
		return "", errors.New("payment service not configured")
	}
	orderUUID, err := cart.ToUUID(orderID)
	if err != nil {
		return "", fmt.Errorf("invalid order id: %w", err)
	}
	payment, err := s.Q.GetPaymentByOrder(ctx, orderUUID)
	if err == nil {
		return payment.Status, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	ord, err := s.Q.GetOrderByID(ctx, orderUUID)
	if err != nil {
		return "", err
	}
	switch ord.Status {
	case order.StatusCanceled:
		return StatusFailed, nil
	case order.StatusPendingPayment:
		return StatusPending, nil
	default:
		return StatusPaid, nil
	}
}

func inferProviderName(p Provider) string {
	switch p.(type) {
	case Midtrans:
		return "midtrans"
	case Xendit:
		return "xendit"
	default:
		return "unknown"
	}
}

func normaliseLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
