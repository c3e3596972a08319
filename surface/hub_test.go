package surface

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHubReplaysLastSnapshotOnConnect(t *testing.T) {
	hub := NewHub()
	hub.Broadcast(map[string]string{"state": "first"})

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleClient))
	defer srv.Close()

	conn := dialHub(t, srv)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected replayed snapshot: %v", err)
	}
	if !strings.Contains(string(data), "first") {
		t.Errorf("unexpected replay payload: %s", data)
	}
}

func TestBroadcastDropsWedgedClient(t *testing.T) {
	prev := writeWait
	writeWait = 100 * time.Millisecond
	defer func() { writeWait = prev }()

	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleClient))
	defer srv.Close()

	// This client never reads; its socket buffers fill and writes block.
	conn := dialHub(t, srv)
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	payload := map[string]string{"pad": strings.Repeat("x", 1<<20)}
	start := time.Now()
	for i := 0; i < 64 && hub.ClientCount() > 0; i++ {
		hub.Broadcast(payload)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("broadcast stalled on a wedged client for %v", elapsed)
	}

	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("wedged client was never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
