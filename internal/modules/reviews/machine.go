package reviews

import "github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"

// Actor identifies who is attempting a transition. The machine rejects an
// edge attempted by the wrong actor regardless of which route was called.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorOperator Actor = "operator"
	ActorSystem   Actor = "system"
)

type edge struct {
	from, to string
}

// transitions is the full edge set. pending-payment -> approved-processing
// is the only system-driven edge; no operator or customer action may take
// it. rejected is re-openable by the operator after re-upload.
var transitions = map[edge]Actor{
	{StatusPending, StatusNeedsChanges}:              ActorOperator,
	{StatusNeedsChanges, StatusNeedsChanges}:         ActorOperator, // further proof rounds
	{StatusNeedsChanges, StatusPendingPayment}:       ActorCustomer,
	{StatusPendingPayment, StatusApprovedProcessing}: ActorSystem,
	{StatusPending, StatusRejected}:                  ActorOperator,
	{StatusNeedsChanges, StatusRejected}:             ActorOperator,
	{StatusPendingPayment, StatusRejected}:           ActorOperator,
	{StatusRejected, StatusPending}:                  ActorOperator,
}

// CanTransition reports whether actor may move a review from -> to.
func CanTransition(from, to string, actor Actor) error {
	required, ok := transitions[edge{from, to}]
	if !ok {
		return apperr.ConflictErr("This design review cannot move from " + from + " to " + to + ".")
	}
	if required != actor {
		return apperr.ForbiddenErr("This action is not available to the " + string(actor) + ".")
	}
	return nil
}

// IsTerminal reports whether no further transitions leave the status.
// rejected is deliberately NOT terminal: the operator may reopen it.
func IsTerminal(status string) bool {
	return status == StatusApprovedProcessing
}

// ValidStatus reports whether s is one of the known review statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusNeedsChanges, StatusPendingPayment, StatusApprovedProcessing, StatusRejected:
		return true
	}
	return false
}
