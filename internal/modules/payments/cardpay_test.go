package payments

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedHeaders(secret string, at time.Time, body []byte) http.Header {
	h := http.Header{}
	t := at.Unix()
	h.Set("X-Cardpay-Signature", fmt.Sprintf("t=%d,v1=%s", t, computeSig([]byte(secret), t, body)))
	return h
}

func TestCardpayVerifyAndParseWebhook(t *testing.T) {
	now := time.Now()
	p := NewCardpayProvider("", "", "whsec_test")
	p.now = func() time.Time { return now }

	body := []byte(`{
		"id": "evt_1",
		"type": "payment.succeeded",
		"data": {
			"review_id": "42",
			"transaction_id": "txn_9",
			"capture_reference": "cap_9",
			"amount_cents": 3990,
			"currency": "USD"
		}
	}`)

	ev, err := p.VerifyAndParseWebhook(signedHeaders("whsec_test", now, body), body)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.EventID)
	assert.Equal(t, EventPaymentSucceeded, ev.Type)
	assert.Equal(t, uint64(42), ev.ReviewID)
	assert.Equal(t, "txn_9", ev.TransactionID)
	assert.Equal(t, "cap_9", ev.CaptureReference)
	assert.Equal(t, 3990, ev.AmountCents)
}

func TestCardpayVerifyAndParseWebhook_Rejections(t *testing.T) {
	now := time.Now()
	p := NewCardpayProvider("", "", "whsec_test")
	p.now = func() time.Time { return now }

	body := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"review_id":"1"}}`)

	t.Run("missing header", func(t *testing.T) {
		_, err := p.VerifyAndParseWebhook(http.Header{}, body)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := p.VerifyAndParseWebhook(signedHeaders("whsec_other", now, body), body)
		assert.Error(t, err)
	})

	t.Run("tampered body", func(t *testing.T) {
		h := signedHeaders("whsec_test", now, body)
		_, err := p.VerifyAndParseWebhook(h, []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"review_id":"2"}}`))
		assert.Error(t, err)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		h := signedHeaders("whsec_test", now.Add(-6*time.Minute), body)
		_, err := p.VerifyAndParseWebhook(h, body)
		assert.Error(t, err)
	})

	t.Run("missing event id", func(t *testing.T) {
		b := []byte(`{"type":"payment.succeeded","data":{}}`)
		_, err := p.VerifyAndParseWebhook(signedHeaders("whsec_test", now, b), b)
		assert.Error(t, err)
	})

	t.Run("bad review id", func(t *testing.T) {
		b := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"review_id":"abc"}}`)
		_, err := p.VerifyAndParseWebhook(signedHeaders("whsec_test", now, b), b)
		assert.Error(t, err)
	})
}

func TestCardpayIssueRefund_RequiresCaptureReference(t *testing.T) {
	p := NewCardpayProvider("", "", "whsec_test")

	_, err := p.IssueRefund(context.Background(), RefundCall{AmountCents: 500, Currency: "USD"})
	assert.ErrorIs(t, err, ErrManualReferenceRequired)

	res, err := p.IssueRefund(context.Background(), RefundCall{CaptureReference: "cap_1", AmountCents: 500, Currency: "USD"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ProviderRefundID)
}
