package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// signature tolerance window
const cardpaySigMaxAge = 5 * time.Minute

// CardpayProvider talks to the card processor's hosted-checkout API. With
// an empty BaseURL it runs offline: sessions and captures succeed locally,
// which is what dev and the mock webhook tool rely on.
type CardpayProvider struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	HTTP          *http.Client

	now func() time.Time
}

func NewCardpayProvider(baseURL, apiKey, webhookSecret string) *CardpayProvider {
	return &CardpayProvider{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIKey:        apiKey,
		WebhookSecret: webhookSecret,
		HTTP:          &http.Client{Timeout: 15 * time.Second},
		now:           time.Now,
	}
}

func (p *CardpayProvider) Name() string { return "cardpay" }

func (p *CardpayProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSessionResponse, error) {
	if p.BaseURL == "" {
		id := "cs_" + uuid.NewString()
		return CheckoutSessionResponse{
			CheckoutURL:       req.SuccessURL,
			ProviderSessionID: id,
		}, nil
	}

	payload := map[string]any{
		"amount_cents": req.AmountCents,
		"currency":     strings.ToLower(req.Currency),
		"success_url":  req.SuccessURL,
		"cancel_url":   req.CancelURL,
		"metadata":     req.Metadata,
	}
	if req.CustomerEmail != "" {
		payload["customer_email"] = req.CustomerEmail
	}
	items := make([]map[string]any, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, map[string]any{
			"name":              li.Name,
			"quantity":          li.Quantity,
			"unit_amount_cents": li.UnitAmountCents,
		})
	}
	payload["line_items"] = items

	var out struct {
		ID          string `json:"id"`
		CheckoutURL string `json:"checkout_url"`
	}
	if err := p.post(ctx, "/v1/checkout/sessions", payload, &out); err != nil {
		return CheckoutSessionResponse{}, err
	}
	return CheckoutSessionResponse{CheckoutURL: out.CheckoutURL, ProviderSessionID: out.ID}, nil
}

// CaptureOrder is a no-op for cardpay: capture happens on the hosted page
// and is reported back via webhook only.
func (p *CardpayProvider) CaptureOrder(ctx context.Context, req CaptureRequest) (CaptureResponse, error) {
	return CaptureResponse{Success: true, TransactionID: req.ProviderOrderID}, nil
}

func (p *CardpayProvider) IssueRefund(ctx context.Context, req RefundCall) (RefundResult, error) {
	if req.CaptureReference == "" {
		return RefundResult{}, ErrManualReferenceRequired
	}
	if p.BaseURL == "" {
		return RefundResult{Success: true, ProviderRefundID: "re_" + uuid.NewString()}, nil
	}

	payload := map[string]any{
		"charge":       req.CaptureReference,
		"amount_cents": req.AmountCents,
		"currency":     strings.ToLower(req.Currency),
		"metadata":     req.Metadata,
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := p.post(ctx, "/v1/refunds", payload, &out); err != nil {
		return RefundResult{}, err
	}
	return RefundResult{Success: out.Status == "succeeded", ProviderRefundID: out.ID}, nil
}

type cardpayWebhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ReviewID         string `json:"review_id"`
		TransactionID    string `json:"transaction_id"`
		CaptureReference string `json:"capture_reference"`
		AmountCents      int    `json:"amount_cents"`
		Currency         string `json:"currency"`
	} `json:"data"`
}

// VerifyAndParseWebhook checks the X-Cardpay-Signature header
// (t=<unix>,v1=<hex hmac-sha256 of "<t>.<body>">) and normalizes the event.
func (p *CardpayProvider) VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error) {
	sig := headers.Get("X-Cardpay-Signature")
	if sig == "" {
		return WebhookEvent{}, errors.New("missing signature header")
	}
	t, v1, err := parseSigHeader(sig)
	if err != nil {
		return WebhookEvent{}, err
	}
	age := p.now().Sub(time.Unix(t, 0))
	if age > cardpaySigMaxAge || age < -cardpaySigMaxAge {
		return WebhookEvent{}, errors.New("signature timestamp outside tolerance")
	}
	expect := computeSig([]byte(p.WebhookSecret), t, body)
	if !hmac.Equal([]byte(expect), []byte(v1)) {
		return WebhookEvent{}, errors.New("signature mismatch")
	}

	var payload cardpayWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook payload: %w", err)
	}
	if payload.ID == "" || payload.Type == "" {
		return WebhookEvent{}, errors.New("webhook payload missing id or type")
	}

	ev := WebhookEvent{
		EventID:          payload.ID,
		Type:             payload.Type,
		TransactionID:    payload.Data.TransactionID,
		CaptureReference: payload.Data.CaptureReference,
		AmountCents:      payload.Data.AmountCents,
		Currency:         payload.Data.Currency,
	}
	if payload.Data.ReviewID != "" {
		id, err := strconv.ParseUint(payload.Data.ReviewID, 10, 64)
		if err != nil {
			return WebhookEvent{}, fmt.Errorf("bad review_id in webhook: %w", err)
		}
		ev.ReviewID = id
	}
	return ev, nil
}

func (p *CardpayProvider) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cardpay %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseSigHeader(h string) (t int64, v1 string, err error) {
	for _, part := range strings.Split(h, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			t, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", errors.New("bad signature timestamp")
			}
		case "v1":
			v1 = v
		}
	}
	if t == 0 || v1 == "" {
		return 0, "", errors.New("malformed signature header")
	}
	return t, v1, nil
}

func computeSig(secret []byte, t int64, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(strconv.FormatInt(t, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}
