package config

import (
	"fmt"
	"os"
)

type SMTPConfig struct {
	Host          string
	Port          string
	User          string
	Pass          string
	TLSMode       string // "", "starttls", "tls"
	SkipVerifyTLS bool
}

type ProviderConfig struct {
	BaseURL       string // empty means offline mode
	APIKey        string
	ClientID      string
	ClientSecret  string
	WebhookSecret string
}

type Config struct {
	Addr  string
	DBDSN string

	EmailFrom     string
	EmailFromName string
	SMTP          SMTPConfig

	CheckoutSuccessURL string
	CheckoutCancelURL  string

	Cardpay ProviderConfig
	PayPal  ProviderConfig
}

// Load reads configuration from the environment. Call godotenv.Load first
// in dev; prod uses real env vars.
func Load() (Config, error) {
	cfg := Config{
		Addr:  envOr("ADDR", ":8080"),
		DBDSN: os.Getenv("DB_DSN"),

		EmailFrom:     envOr("EMAIL_FROM", "no-reply@mayhemcreations.local"),
		EmailFromName: envOr("EMAIL_FROM_NAME", "Mayhem Creations"),
		SMTP: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          envOr("SMTP_PORT", "1025"),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			TLSMode:       os.Getenv("SMTP_TLS_MODE"),
			SkipVerifyTLS: os.Getenv("SMTP_SKIP_VERIFY_TLS") == "true",
		},

		CheckoutSuccessURL: envOr("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		CheckoutCancelURL:  envOr("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),

		Cardpay: ProviderConfig{
			BaseURL:       os.Getenv("CARDPAY_BASE_URL"),
			APIKey:        os.Getenv("CARDPAY_API_KEY"),
			WebhookSecret: os.Getenv("CARDPAY_WEBHOOK_SECRET"),
		},
		PayPal: ProviderConfig{
			BaseURL:       os.Getenv("PAYPAL_BASE_URL"),
			ClientID:      os.Getenv("PAYPAL_CLIENT_ID"),
			ClientSecret:  os.Getenv("PAYPAL_CLIENT_SECRET"),
			WebhookSecret: os.Getenv("PAYPAL_WEBHOOK_SECRET"),
		},
	}
	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("DB_DSN environment variable is required")
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
