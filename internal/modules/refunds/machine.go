package refunds

import "github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"

type edge struct {
	from string
	to   string
}

// Allowed transitions. completed, rejected and cancelled are terminal;
// failed recovers through approved on retry.
var transitions = map[edge]struct{}{
	{StatusPending, StatusUnderReview}:   {},
	{StatusUnderReview, StatusApproved}:  {},
	{StatusApproved, StatusProcessing}:   {},
	{StatusProcessing, StatusCompleted}:  {},
	{StatusPending, StatusRejected}:      {},
	{StatusUnderReview, StatusRejected}:  {},
	{StatusPending, StatusCancelled}:     {},
	{StatusUnderReview, StatusCancelled}: {},
	{StatusApproved, StatusFailed}:       {},
	{StatusProcessing, StatusFailed}:     {},
	{StatusFailed, StatusApproved}:       {},
	// a provider that cannot execute without a manual reference sends the
	// request back for the operator to supply one
	{StatusApproved, StatusUnderReview}: {},
}

func CanTransition(from, to string) error {
	if _, ok := transitions[edge{from, to}]; !ok {
		return apperr.ConflictErr("Refund request cannot move from " + from + " to " + to + ".")
	}
	return nil
}

func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusUnderReview, StatusApproved, StatusProcessing,
		StatusCompleted, StatusRejected, StatusCancelled, StatusFailed:
		return true
	}
	return false
}
