package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PayPal event names mapped onto the canonical types.
const (
	paypalCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	paypalCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
)

// PayPalProvider drives the PayPal Orders v2 flow: create order, customer
// approves on PayPal, capture, then the capture webhook confirms. With an
// empty BaseURL it runs offline like the cardpay adapter.
type PayPalProvider struct {
	BaseURL       string
	ClientID      string
	ClientSecret  string
	WebhookSecret string
	HTTP          *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	now func() time.Time
}

func NewPayPalProvider(baseURL, clientID, clientSecret, webhookSecret string) *PayPalProvider {
	return &PayPalProvider{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		WebhookSecret: webhookSecret,
		HTTP:          &http.Client{Timeout: 20 * time.Second},
		now:           time.Now,
	}
}

func (p *PayPalProvider) Name() string { return "paypal" }

func (p *PayPalProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSessionResponse, error) {
	if p.BaseURL == "" {
		id := fmt.Sprintf("PP-%d-%d", req.ReviewID, p.now().UnixNano())
		return CheckoutSessionResponse{CheckoutURL: req.SuccessURL, ProviderSessionID: id}, nil
	}

	// dollars with two decimals on the wire
	amount := fmt.Sprintf("%d.%02d", req.AmountCents/100, req.AmountCents%100)
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": req.Metadata[MetaReviewID],
			"custom_id":    req.Metadata[MetaReviewID],
			"amount": map[string]any{
				"currency_code": strings.ToUpper(req.Currency),
				"value":         amount,
			},
		}},
		"application_context": map[string]any{
			"return_url": req.SuccessURL,
			"cancel_url": req.CancelURL,
		},
	}

	var out struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := p.post(ctx, "/v2/checkout/orders", payload, &out); err != nil {
		return CheckoutSessionResponse{}, err
	}
	resp := CheckoutSessionResponse{ProviderSessionID: out.ID}
	for _, l := range out.Links {
		if l.Rel == "approve" {
			resp.CheckoutURL = l.Href
		}
	}
	return resp, nil
}

func (p *PayPalProvider) CaptureOrder(ctx context.Context, req CaptureRequest) (CaptureResponse, error) {
	if p.BaseURL == "" {
		return CaptureResponse{Success: true, TransactionID: req.ProviderOrderID}, nil
	}

	var out struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID string `json:"id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	path := "/v2/checkout/orders/" + url.PathEscape(req.ProviderOrderID) + "/capture"
	if err := p.post(ctx, path, map[string]any{}, &out); err != nil {
		return CaptureResponse{}, err
	}
	resp := CaptureResponse{Success: out.Status == "COMPLETED"}
	for _, pu := range out.PurchaseUnits {
		if len(pu.Payments.Captures) > 0 {
			resp.TransactionID = pu.Payments.Captures[0].ID
		}
	}
	return resp, nil
}

// IssueRefund needs the capture id. Orders imported before capture ids were
// stored have none; the operator supplies one and the refund is retried.
func (p *PayPalProvider) IssueRefund(ctx context.Context, req RefundCall) (RefundResult, error) {
	if req.CaptureReference == "" {
		return RefundResult{}, ErrManualReferenceRequired
	}
	if p.BaseURL == "" {
		return RefundResult{Success: true, ProviderRefundID: "REF-" + req.CaptureReference}, nil
	}

	amount := fmt.Sprintf("%d.%02d", req.AmountCents/100, req.AmountCents%100)
	payload := map[string]any{
		"amount": map[string]any{
			"currency_code": strings.ToUpper(req.Currency),
			"value":         amount,
		},
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	path := "/v2/payments/captures/" + url.PathEscape(req.CaptureReference) + "/refund"
	if err := p.post(ctx, path, payload, &out); err != nil {
		return RefundResult{}, err
	}
	return RefundResult{Success: out.Status == "COMPLETED" || out.Status == "PENDING", ProviderRefundID: out.ID}, nil
}

type paypalWebhookPayload struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID       string `json:"id"` // capture id
		CustomID string `json:"custom_id"`
		Amount   struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
	} `json:"resource"`
}

// VerifyAndParseWebhook validates the transmission signature and maps
// PayPal capture events onto the canonical payment.* types. Events for
// other resource families parse fine and fall through the registry as
// unhandled types.
func (p *PayPalProvider) VerifyAndParseWebhook(headers http.Header, body []byte) (WebhookEvent, error) {
	sig := headers.Get("X-Paypal-Transmission-Sig")
	if sig == "" {
		return WebhookEvent{}, errors.New("missing transmission signature")
	}
	ts := headers.Get("X-Paypal-Transmission-Time")
	t, err := parseTransmissionTime(ts)
	if err != nil {
		return WebhookEvent{}, err
	}
	expect := computeSig([]byte(p.WebhookSecret), t, body)
	if sig != expect {
		return WebhookEvent{}, errors.New("transmission signature mismatch")
	}

	var payload paypalWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook payload: %w", err)
	}
	if payload.ID == "" || payload.EventType == "" {
		return WebhookEvent{}, errors.New("webhook payload missing id or event_type")
	}

	ev := WebhookEvent{
		EventID:          payload.ID,
		Type:             payload.EventType,
		TransactionID:    payload.Resource.ID,
		CaptureReference: payload.Resource.ID,
		Currency:         payload.Resource.Amount.CurrencyCode,
	}
	switch payload.EventType {
	case paypalCaptureCompleted:
		ev.Type = EventPaymentSucceeded
	case paypalCaptureDenied:
		ev.Type = EventPaymentFailed
	}
	if payload.Resource.CustomID != "" {
		id, err := strconv.ParseUint(payload.Resource.CustomID, 10, 64)
		if err != nil {
			return WebhookEvent{}, fmt.Errorf("bad custom_id in webhook: %w", err)
		}
		ev.ReviewID = id
	}
	if v := payload.Resource.Amount.Value; v != "" {
		ev.AmountCents = parseMoneyCents(v)
	}
	return ev, nil
}

func (p *PayPalProvider) post(ctx context.Context, path string, payload any, out any) error {
	token, err := p.token(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("paypal %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accessToken != "" && p.now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.ClientID, p.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal oauth: status %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	p.accessToken = out.AccessToken
	p.tokenExpiry = p.now().Add(time.Duration(out.ExpiresIn-60) * time.Second)
	return p.accessToken, nil
}

func parseTransmissionTime(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("missing transmission time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	t, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New("bad transmission time")
	}
	return t, nil
}

// parseMoneyCents turns "12.34" into 1234; malformed input yields 0.
func parseMoneyCents(s string) int {
	whole, frac, _ := strings.Cut(s, ".")
	w, err := strconv.Atoi(whole)
	if err != nil {
		return 0
	}
	cents := w * 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.Atoi(frac)
		if err != nil {
			return 0
		}
		cents += f
	}
	return cents
}
