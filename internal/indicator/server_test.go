package indicator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(&ServerConfig{Port: 0})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func TestMulti(t *testing.T) {
	var a, b []Event
	sink := Multi(
		SinkFunc(func(e Event) { a = append(a, e) }),
		SinkFunc(func(e Event) { b = append(b, e) }),
	)

	sink.Publish(Event{State: StateSynced})
	if len(a) != 1 || len(b) != 1 {
		t.Errorf("Multi did not fan out: %d, %d", len(a), len(b))
	}
}

func TestServer_ReplaysLastEventToNewClient(t *testing.T) {
	srv := startTestServer(t)

	srv.Publish(Event{State: StateSyncFailed, Pending: 3, Reason: "timeout"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", srv.Addr()), nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("bad event payload: %v", err)
	}
	if e.State != StateSyncFailed || e.Pending != 3 || e.Reason != "timeout" {
		t.Errorf("replayed event = %+v", e)
	}
}

func TestServer_BroadcastsToConnectedClient(t *testing.T) {
	srv := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", srv.Addr()), nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Wait until the server registers the client before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", srv.ClientCount())
	}

	srv.Publish(Event{State: StateSyncing, Pending: 2})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("bad event payload: %v", err)
	}
	if e.State != StateSyncing || e.Pending != 2 {
		t.Errorf("event = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("server should stamp events missing a timestamp")
	}
}

func TestServer_Health(t *testing.T) {
	srv := startTestServer(t)
	srv.Publish(Event{State: StateConnected})

	resp, err := http.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("bad health payload: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
	if body["state"] != "connected" {
		t.Errorf("state = %v", body["state"])
	}
}
