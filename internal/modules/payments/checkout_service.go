package payments

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/reviews"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

// CheckoutService starts provider checkout sessions for approved reviews.
// It never creates orders; that happens only in the webhook coordinator.
type CheckoutService struct {
	db        *gorm.DB
	providers map[string]Provider
	logger    *slog.Logger

	successURL string
	cancelURL  string
}

func NewCheckoutService(db *gorm.DB, successURL, cancelURL string, logger *slog.Logger, providers ...Provider) *CheckoutService {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &CheckoutService{db: db, providers: m, logger: logger, successURL: successURL, cancelURL: cancelURL}
}

func (s *CheckoutService) Provider(name string) (Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, apperr.InvalidErr("Unknown payment provider.", map[string]string{"provider": name})
	}
	return p, nil
}

type StartCheckoutInput struct {
	ReviewID      uint64
	UserID        string
	ProviderName  string
	CustomerEmail string
}

// StartCheckout builds a checkout session from the review's frozen pricing.
// Amounts come from the stored totals, never recomputed.
func (s *CheckoutService) StartCheckout(ctx context.Context, in StartCheckoutInput) (CheckoutSessionResponse, error) {
	p, err := s.Provider(in.ProviderName)
	if err != nil {
		return CheckoutSessionResponse{}, err
	}

	var r reviews.OrderReview
	if err := s.db.WithContext(ctx).First(&r, "id = ?", in.ReviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CheckoutSessionResponse{}, apperr.NotFoundErr("Design review not found.")
		}
		return CheckoutSessionResponse{}, apperr.Wrap(err)
	}
	if r.UserID != in.UserID {
		return CheckoutSessionResponse{}, apperr.ForbiddenErr("This design review belongs to another customer.")
	}
	if r.Status != reviews.StatusPendingPayment {
		return CheckoutSessionResponse{}, reviews.ErrNotAwaitingPayment
	}

	req := CheckoutSessionRequest{
		ReviewID:      r.ID,
		AmountCents:   r.TotalCents,
		Currency:      r.Currency,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
		CustomerEmail: in.CustomerEmail,
		Metadata: map[string]string{
			MetaReviewID: strconv.FormatUint(r.ID, 10),
		},
	}
	addr := r.Address()
	req.CustomerName = addr.FirstName + " " + addr.LastName
	req.ShippingCountry = addr.Country

	for _, item := range r.Items() {
		req.LineItems = append(req.LineItems, SessionLineItem{
			Name:            item.Name,
			Quantity:        item.Quantity,
			UnitAmountCents: item.Pricing.UnitTotalCents,
		})
	}
	if r.ShippingCents > 0 {
		req.LineItems = append(req.LineItems, SessionLineItem{Name: "Shipping", Quantity: 1, UnitAmountCents: r.ShippingCents})
	}
	if r.TaxCents > 0 {
		req.LineItems = append(req.LineItems, SessionLineItem{Name: "Sales tax", Quantity: 1, UnitAmountCents: r.TaxCents})
	}

	resp, err := p.CreateCheckoutSession(ctx, req)
	if err != nil {
		return CheckoutSessionResponse{}, apperr.Wrap(err)
	}
	s.logger.InfoContext(ctx, "checkout session created",
		"provider", p.Name(), "review_id", r.ID, "session_id", resp.ProviderSessionID, "amount_cents", r.TotalCents)
	return resp, nil
}

// Capture confirms a provider order after customer approval. For providers
// with synchronous capture this is a hint only; the review advances when
// the capture webhook lands.
func (s *CheckoutService) Capture(ctx context.Context, providerName, providerOrderID string, reviewID uint64) (CaptureResponse, error) {
	p, err := s.Provider(providerName)
	if err != nil {
		return CaptureResponse{}, err
	}
	resp, err := p.CaptureOrder(ctx, CaptureRequest{
		ProviderOrderID: providerOrderID,
		Metadata:        map[string]string{MetaReviewID: strconv.FormatUint(reviewID, 10)},
	})
	if err != nil {
		return CaptureResponse{}, apperr.Wrap(err)
	}
	return resp, nil
}
