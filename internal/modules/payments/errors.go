package payments

import "errors"

var (
	// ErrManualReferenceRequired: the provider cannot execute a refund
	// without a capture reference the system does not have on file. The
	// operator supplies one out-of-band and retries; this is a first-class
	// condition, not a failure.
	ErrManualReferenceRequired = errors.New("manual capture reference required")

	ErrReviewNotPayable = errors.New("design review is not payable")
	ErrUnknownProvider  = errors.New("unknown payment provider")
)
