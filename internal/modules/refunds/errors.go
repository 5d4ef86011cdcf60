package refunds

import "github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"

var (
	ErrOrderNotRefundable = apperr.ConflictErr("Order is not refundable.")
	ErrAmountExceedsOrder = apperr.InvalidErr("Requested amount exceeds the refundable balance.", map[string]string{"requested_cents": "exceeds refundable balance"})
	ErrReasonRequired     = apperr.InvalidErr("A rejection reason is required.", map[string]string{"reason": "required"})
)
