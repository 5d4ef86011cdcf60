package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/middleware"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/validation"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/payments"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

type CheckoutHandler struct {
	Svc *payments.CheckoutService
}

func NewCheckoutHandler(svc *payments.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Svc: svc}
}

type startCheckoutReq struct {
	Provider string `json:"provider" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// POST /api/reviews/:id/checkout
// Creates the provider session only; the order appears when the capture
// webhook lands.
func (h *CheckoutHandler) Start(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}
	u, _ := middleware.CurrentUser(c)

	var req startCheckoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Checkout request is invalid.", validation.FromBindError(err, &req)))
		return
	}

	resp, err := h.Svc.StartCheckout(c.Request.Context(), payments.StartCheckoutInput{
		ReviewID:      id,
		UserID:        u.ID,
		ProviderName:  req.Provider,
		CustomerEmail: req.Email,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checkoutUrl": resp.CheckoutURL,
		"sessionId":   resp.ProviderSessionID,
	})
}

type captureReq struct {
	Provider        string `json:"provider" binding:"required"`
	ProviderOrderID string `json:"providerOrderId" binding:"required"`
}

// POST /api/reviews/:id/capture
// Asks the provider to capture after customer approval (PayPal-style
// flows). The review still advances via the webhook, not this response.
func (h *CheckoutHandler) Capture(c *gin.Context) {
	id, ok := reviewID(c)
	if !ok {
		return
	}

	var req captureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Capture request is invalid.", validation.FromBindError(err, &req)))
		return
	}

	resp, err := h.Svc.Capture(c.Request.Context(), req.Provider, req.ProviderOrderID, id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       resp.Success,
		"transactionId": resp.TransactionID,
	})
}
