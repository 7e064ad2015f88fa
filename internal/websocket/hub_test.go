package websocket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"groupboard/internal/config"
	ws "groupboard/internal/websocket"
)

var wsCfg = config.WebSocketConfig{
	WriteWaitSeconds:    5,
	PongWaitSeconds:     60,
	PingPeriodSeconds:   54,
	MaxMessageSizeBytes: 512,
}

func startHub(t *testing.T) (*ws.Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := ws.NewHub()
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

// dial connects userID to the hub and waits until the hub has registered it.
func dial(t *testing.T, hub *ws.Hub, userID uint, want int) *gorilla.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, userID, w, r, wsCfg)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	waitOnline(t, hub, userID, want)
	return conn
}

func waitOnline(t *testing.T, hub *ws.Hub, userID uint, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Online(context.Background(), userID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("user %d never reached %d connections", userID, want)
}

func read(t *testing.T, conn *gorilla.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	return string(msg)
}

func TestDeliverReachesEveryConnectionOfUser(t *testing.T) {
	hub, _ := startHub(t)
	first := dial(t, hub, 7, 1)
	second := dial(t, hub, 7, 2)
	other := dial(t, hub, 8, 1)

	if !hub.Deliver(7, []byte(`{"type":"post.created"}`)) {
		t.Fatal("Deliver() = false")
	}
	for _, conn := range []*gorilla.Conn{first, second} {
		if got := read(t, conn); got != `{"type":"post.created"}` {
			t.Fatalf("message = %s", got)
		}
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("user 8 received a notification meant for user 7")
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, _ := startHub(t)
	conn := dial(t, hub, 3, 1)

	conn.Close()
	waitOnline(t, hub, 3, 0)
}

func TestDeliverToOfflineUserIsDropped(t *testing.T) {
	hub, _ := startHub(t)
	if !hub.Deliver(99, []byte("x")) {
		t.Fatal("Deliver() = false with an empty queue")
	}
	if n := hub.Online(context.Background(), 99); n != 0 {
		t.Fatalf("Online() = %d", n)
	}
}

func TestStopClosesConnections(t *testing.T) {
	hub, cancel := startHub(t)
	conn := dial(t, hub, 5, 1)

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseNoStatusReceived) {
		t.Fatalf("ReadMessage() error = %v, want close", err)
	}
}
