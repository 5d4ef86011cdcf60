package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DispatchRoutesToHandler(t *testing.T) {
	reg := NewRegistry(testLogger())

	var got WebhookEvent
	reg.Register(EventPaymentSucceeded, func(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error {
		got = ev
		return nil
	})

	ev := WebhookEvent{EventID: "evt_1", Type: EventPaymentSucceeded, ReviewID: 7}
	require.NoError(t, reg.Dispatch(context.Background(), "cardpay", ev, nil))
	assert.Equal(t, ev, got)
}

func TestRegistry_UnknownEventTypeIsNoOp(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Register(EventPaymentSucceeded, func(context.Context, string, WebhookEvent, []byte) error {
		t.Fatal("handler must not run for an unregistered type")
		return nil
	})

	ev := WebhookEvent{EventID: "evt_1", Type: "subscription.renewed"}
	assert.NoError(t, reg.Dispatch(context.Background(), "cardpay", ev, nil))
}

func TestRegistry_HandlerErrorPropagates(t *testing.T) {
	reg := NewRegistry(testLogger())
	boom := errors.New("db down")
	reg.Register(EventPaymentFailed, func(context.Context, string, WebhookEvent, []byte) error {
		return boom
	})

	err := reg.Dispatch(context.Background(), "cardpay", WebhookEvent{Type: EventPaymentFailed}, nil)
	assert.ErrorIs(t, err, boom)
}
