package refunds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

func TestCanTransition_AllowedEdges(t *testing.T) {
	cases := []struct{ from, to string }{
		{StatusPending, StatusUnderReview},
		{StatusUnderReview, StatusApproved},
		{StatusApproved, StatusProcessing},
		{StatusProcessing, StatusCompleted},
		{StatusPending, StatusRejected},
		{StatusUnderReview, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusUnderReview, StatusCancelled},
		{StatusApproved, StatusFailed},
		{StatusProcessing, StatusFailed},
		{StatusFailed, StatusApproved},
		{StatusApproved, StatusUnderReview}, // manual capture reference return path
	}
	for _, tc := range cases {
		assert.NoError(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransition_DisallowedEdges(t *testing.T) {
	cases := []struct{ from, to string }{
		{StatusPending, StatusApproved},
		{StatusPending, StatusCompleted},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusFailed},
		{StatusRejected, StatusUnderReview},
		{StatusCancelled, StatusPending},
		{StatusFailed, StatusCompleted},
		{StatusApproved, StatusCancelled},
	}
	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to)
		ae, ok := apperr.As(err)
		assert.True(t, ok, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, apperr.Conflict, ae.Kind)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusRejected))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.False(t, IsTerminal(StatusFailed)) // recoverable via retry
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusUnderReview))
	assert.False(t, IsTerminal(StatusApproved))
	assert.False(t, IsTerminal(StatusProcessing))
}
