package payments

import (
	"context"
	"net/http"
)

// Metadata keys carried on every provider call. They are the only linkage
// between provider state and internal state.
const (
	MetaReviewID = "review_id"
	MetaOrderID  = "order_id"
)

// Canonical event types dispatched through the registry. Adapters map
// provider-specific names onto these.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

type SessionLineItem struct {
	Name            string
	Quantity        int
	UnitAmountCents int
}

type CheckoutSessionRequest struct {
	ReviewID        uint64
	LineItems       []SessionLineItem
	AmountCents     int
	Currency        string
	SuccessURL      string
	CancelURL       string
	CustomerEmail   string
	CustomerName    string
	ShippingCountry string
	Metadata        map[string]string
}

type CheckoutSessionResponse struct {
	CheckoutURL       string
	ProviderSessionID string
}

type CaptureRequest struct {
	ProviderOrderID string
	Metadata        map[string]string
}

type CaptureResponse struct {
	Success       bool
	TransactionID string
}

type RefundCall struct {
	CaptureReference string
	AmountCents      int
	Currency         string
	Metadata         map[string]string
}

type RefundResult struct {
	Success          bool
	ProviderRefundID string
}

// WebhookEvent is a provider callback normalized to canonical shape.
type WebhookEvent struct {
	EventID          string
	Type             string
	ReviewID         uint64 // from the metadata cross-reference
	TransactionID    string
	CaptureReference string
	AmountCents      int
	Currency         string
}

// Provider is the payment boundary. Capture semantics differ per provider:
// some confirm synchronously on capture, some only via webhook; the
// coordinator treats the webhook as the sole source of capture truth.
type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSessionResponse, error)
	CaptureOrder(ctx context.Context, req CaptureRequest) (CaptureResponse, error)
	IssueRefund(ctx context.Context, req RefundCall) (RefundResult, error)

	// Webhook: verify signature + parse event
	VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error)
}
