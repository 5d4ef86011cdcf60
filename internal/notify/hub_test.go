package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, serverURL, subjects string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(serverURL, "http")
	if subjects != "" {
		u += "?subjects=" + subjects
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(b, &msg))
	return msg
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishReachesSubscriber(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv.URL, "")
	waitForClients(t, h, 1)

	h.Publish(EventDesignReviewUpdated, "review:7", map[string]any{"status": "needs-changes"})

	msg := readMessage(t, conn)
	assert.Equal(t, EventDesignReviewUpdated, msg.Event)
	assert.Equal(t, "review:7", msg.SubjectID)
}

func TestHub_SubjectFiltering(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv.URL, "order:abc")
	waitForClients(t, h, 1)

	h.Publish(EventDesignReviewUpdated, "review:7", nil)
	h.Publish(EventOrderStatusChanged, "order:abc", nil)

	// only the watched subject arrives
	msg := readMessage(t, conn)
	assert.Equal(t, "order:abc", msg.SubjectID)
	assert.Equal(t, EventOrderStatusChanged, msg.Event)
}

func TestHub_DisconnectedClientEvicted(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv.URL, "")
	waitForClients(t, h, 1)

	require.NoError(t, conn.Close())
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not evicted after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// publishing to an empty hub must not panic or block
	h.Publish(EventStockAlert, "product:1", nil)
}
