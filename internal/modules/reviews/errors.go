package reviews

import "github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"

// ErrNotAwaitingPayment reports a paid-webhook arriving for a review that
// is not in pending-payment. Callers treat it as a redelivery no-op.
var ErrNotAwaitingPayment = apperr.ConflictErr("Design review is not awaiting payment.")
