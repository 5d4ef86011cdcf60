package payments

import (
	"context"
	"log/slog"
)

// EventHandler processes one normalized provider event.
type EventHandler func(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error

// Registry maps event type -> handler. It is built once at startup and
// passed by reference to whoever dispatches; there is no package-level
// state. Unknown event types are logged and ignored so new provider event
// families never break ingestion.
type Registry struct {
	logger   *slog.Logger
	handlers map[string]EventHandler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger, handlers: map[string]EventHandler{}}
}

func (r *Registry) Register(eventType string, h EventHandler) {
	r.handlers[eventType] = h
}

// Dispatch routes the event to its handler. An unregistered type is a
// logged no-op, not an error: the provider gets a 200 and stops retrying.
func (r *Registry) Dispatch(ctx context.Context, providerName string, ev WebhookEvent, rawBody []byte) error {
	h, ok := r.handlers[ev.Type]
	if !ok {
		r.logger.InfoContext(ctx, "webhook event type not handled",
			"provider", providerName, "event_id", ev.EventID, "type", ev.Type)
		return nil
	}
	return h(ctx, providerName, ev, rawBody)
}

// Types lists the registered event types (diagnostics).
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}
