package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

type webhookPayload struct {
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

func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/cardpay", "Webhook URL")
	secret := flag.String("secret", os.Getenv("CARDPAY_WEBHOOK_SECRET"), "Webhook secret")
	eventID := flag.String("event-id", "evt_"+randomHex(8), "Event ID")
	eventType := flag.String("type", "payment.succeeded", "Event type (payment.succeeded, payment.failed)")
	reviewID := flag.String("review-id", "1", "Order review ID the payment belongs to")
	transactionID := flag.String("transaction-id", "txn_"+randomHex(8), "Provider transaction ID")
	captureRef := flag.String("capture-reference", "cap_"+randomHex(8), "Provider capture reference")
	amount := flag.Int("amount", 5000, "Amount in cents")
	currency := flag.String("currency", "USD", "Currency")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and CARDPAY_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	// Build payload
	payload := webhookPayload{
		ID:   *eventID,
		Type: *eventType,
	}
	payload.Data.ReviewID = *reviewID
	payload.Data.TransactionID = *transactionID
	payload.Data.CaptureReference = *captureRef
	payload.Data.AmountCents = *amount
	payload.Data.Currency = *currency

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	// Compute signature
	t := time.Now().Unix()
	sig := computeSig([]byte(*secret), t, body)

	sigHeader := fmt.Sprintf("t=%d,v1=%s", t, sig)

	fmt.Printf("X-Cardpay-Signature: %s\n", sigHeader)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	// Send webhook
	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest("POST", *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cardpay-Signature", sigHeader)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func computeSig(secret []byte, t int64, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write([]byte(strconv.FormatInt(t, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)[:n]
}
