package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/mailer"
)

// Service renders and sends the transactional emails. Callers treat
// delivery as best-effort; errors are returned for logging only.
type Service struct {
	mailer   mailer.Service
	fromAddr string
	fromName string
	timeout  time.Duration
}

func NewService(m mailer.Service, fromAddr, fromName string) *Service {
	return &Service{mailer: m, fromAddr: fromAddr, fromName: fromName, timeout: 10 * time.Second}
}

func (s *Service) SendOrderConfirmation(to, name, orderNumber string, totalCents int, currency string) error {
	total := formatMoney(totalCents, currency)
	subject := "Order confirmed - " + orderNumber

	textBody := "Hi " + name + ",\n\n" +
		"Thank you for your order! Your payment was received and your embroidered items are now in production.\n\n" +
		"Order number: " + orderNumber + "\n" +
		"Total: " + total + "\n\n" +
		"We'll email you again when your order ships.\n\nMayhem Creations"

	htmlBody := `
<html>
  <body style="font-family: sans-serif;">
    <h2>Order confirmed</h2>
    <p>Hi ` + name + `,</p>
    <p>Thank you for your order! Your payment was received and your embroidered items are now in production.</p>
    <p><strong>Order number:</strong> ` + orderNumber + `</p>
    <p><strong>Total:</strong> ` + total + `</p>
    <p>We'll email you again when your order ships.</p>
    <p>Mayhem Creations</p>
  </body>
</html>
`
	return s.send(to, subject, htmlBody, textBody)
}

func (s *Service) SendRefundDecision(to, orderNumber, status string, amountCents int, currency, reason string) error {
	amount := formatMoney(amountCents, currency)

	var subject, lead string
	switch status {
	case "completed":
		subject = "Refund issued - " + orderNumber
		lead = "Your refund of " + amount + " for order " + orderNumber + " has been issued. Depending on your bank it may take a few business days to appear."
	case "rejected":
		subject = "Refund request declined - " + orderNumber
		lead = "Your refund request for order " + orderNumber + " was declined."
		if reason != "" {
			lead += " Reason: " + reason
		}
	default:
		subject = "Refund update - " + orderNumber
		lead = "Your refund request for order " + orderNumber + " is now " + status + "."
	}

	textBody := lead + "\n\nMayhem Creations"
	htmlBody := `
<html>
  <body style="font-family: sans-serif;">
    <h2>` + subject + `</h2>
    <p>` + lead + `</p>
    <p>Mayhem Creations</p>
  </body>
</html>
`
	return s.send(to, subject, htmlBody, textBody)
}

func (s *Service) send(to, subject, htmlBody, textBody string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.mailer.Send(ctx, mailer.Email{
		From:     s.fromAddr,
		FromName: s.fromName,
		To:       []string{to},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	})
}

func formatMoney(cents int, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
