package stream

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func startApp(t *testing.T, hub *Hub) string {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func TestStreamHandlersRejectPlainRequests(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), NewHub(nil, zerolog.Nop()))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream/ws/timeline", nil))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/stream/ws/secret", nil))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown topic, got %d", resp.StatusCode)
	}
}

func TestStreamHandlersWebsocketBroadcast(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	base := startApp(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/timeline", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	// Registration happens after the upgrade completes; keep broadcasting
	// until the first event lands.
	received := make(chan string, 1)
	go func() {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			received <- string(msg)
		}
		close(received)
	}()
	for i := 0; i < 50; i++ {
		hub.Broadcast("timeline", []byte("hello"))
		select {
		case msg := <-received:
			if msg != "hello" {
				t.Fatalf("unexpected message %q", msg)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
	t.Fatalf("no event received")
}

func TestStreamHandlersClientDisconnect(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	base := startApp(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/group:cats", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	conn.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.clients["group:cats"])
		hub.mu.RUnlock()
		if n == 0 {
			hub.Broadcast("group:cats", []byte("ping"))
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client was not unregistered")
}
