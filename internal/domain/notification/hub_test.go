package notification

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHubLocalDelivery(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	accountID := uuid.New()
	conn := &Connection{
		AccountID: accountID,
		Send:      make(chan []byte, 8),
	}
	hub.Register(conn)

	waitFor(t, func() bool { return hub.GetConnectionCount() == 1 })

	payload := map[string]string{"type": "notification:new"}
	if err := hub.PublishToAccount(accountID, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case data := <-conn.Send:
		var got map[string]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if got["type"] != "notification:new" {
			t.Fatalf("unexpected payload %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	// Publishing to someone else must not reach this connection
	if err := hub.PublishToAccount(uuid.New(), payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	select {
	case <-conn.Send:
		t.Fatal("received message addressed to another account")
	case <-time.After(50 * time.Millisecond):
	}

	hub.Unregister(conn)
	waitFor(t, func() bool { return hub.GetConnectionCount() == 0 })
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	accountID := uuid.New()
	conn := &Connection{
		AccountID: accountID,
		Send:      make(chan []byte, 1),
	}
	hub.Register(conn)
	waitFor(t, func() bool { return hub.GetConnectionCount() == 1 })

	// Second publish must not block even though nobody drains the channel
	done := make(chan struct{})
	go func() {
		hub.PublishToAccount(accountID, "a")
		hub.PublishToAccount(accountID, "b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on full buffer")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
