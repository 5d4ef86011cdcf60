package mailer

import (
	"context"
	"sync"
)

// Mock collects outgoing mail instead of delivering it. It backs the dev
// setup where no SMTP host is configured, and tests that assert on what
// would have been sent.
type Mock struct {
	mu   sync.Mutex
	sent []Email

	Err error // returned by Send when set
}

func (m *Mock) Send(ctx context.Context, e Email) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, e)
	return nil
}

// Sent returns a copy of everything delivered so far.
func (m *Mock) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}
