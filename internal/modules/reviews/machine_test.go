package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

func TestCanTransition_AllowedEdges(t *testing.T) {
	cases := []struct {
		from, to string
		actor    Actor
	}{
		{StatusPending, StatusNeedsChanges, ActorOperator},
		{StatusNeedsChanges, StatusNeedsChanges, ActorOperator},
		{StatusNeedsChanges, StatusPendingPayment, ActorCustomer},
		{StatusPendingPayment, StatusApprovedProcessing, ActorSystem},
		{StatusPending, StatusRejected, ActorOperator},
		{StatusNeedsChanges, StatusRejected, ActorOperator},
		{StatusPendingPayment, StatusRejected, ActorOperator},
		{StatusRejected, StatusPending, ActorOperator},
	}
	for _, tc := range cases {
		assert.NoError(t, CanTransition(tc.from, tc.to, tc.actor), "%s -> %s (%s)", tc.from, tc.to, tc.actor)
	}
}

func TestCanTransition_UnknownEdgeConflicts(t *testing.T) {
	cases := []struct{ from, to string }{
		{StatusPending, StatusPendingPayment},
		{StatusPending, StatusApprovedProcessing},
		{StatusApprovedProcessing, StatusPending},
		{StatusApprovedProcessing, StatusRejected},
		{StatusRejected, StatusNeedsChanges},
	}
	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to, ActorOperator)
		ae, ok := apperr.As(err)
		assert.True(t, ok, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, apperr.Conflict, ae.Kind)
	}
}

func TestCanTransition_WrongActorForbidden(t *testing.T) {
	cases := []struct {
		from, to string
		actor    Actor
	}{
		{StatusPending, StatusNeedsChanges, ActorCustomer},
		{StatusNeedsChanges, StatusPendingPayment, ActorOperator},
		{StatusPendingPayment, StatusApprovedProcessing, ActorOperator},
		{StatusPendingPayment, StatusApprovedProcessing, ActorCustomer},
		{StatusRejected, StatusPending, ActorCustomer},
	}
	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to, tc.actor)
		ae, ok := apperr.As(err)
		assert.True(t, ok, "%s -> %s (%s)", tc.from, tc.to, tc.actor)
		assert.Equal(t, apperr.Forbidden, ae.Kind)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusApprovedProcessing))
	assert.False(t, IsTerminal(StatusRejected)) // reopenable
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusNeedsChanges))
	assert.False(t, IsTerminal(StatusPendingPayment))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusNeedsChanges, StatusPendingPayment, StatusApprovedProcessing, StatusRejected} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("approved"))
	assert.False(t, ValidStatus(""))
}
