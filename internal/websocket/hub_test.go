package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var testSecret = []byte("ws-secret")

func startServer(t *testing.T) (*Hub, *httptest.Server, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	stop := make(chan struct{})
	var once sync.Once
	stopHub := func() { once.Do(func() { close(stop) }) }
	go hub.Run(stop)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, testSecret) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		stopHub()
	})
	return hub, srv, stopHub
}

func signedToken(t *testing.T, email string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": email}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func waitForClients(hub *Hub, n int) {
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
}

func TestServeWsRejectsBadToken(t *testing.T) {
	_, srv, _ := startServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "garbage"), nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestPublishReachesClient(t *testing.T) {
	hub, srv, _ := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, signedToken(t, "a@x.com")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(hub, 1)

	hub.Publish("contract.returned", map[string]int64{"contract_id": 77})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev struct {
		Type    string           `json:"type"`
		Payload map[string]int64 `json:"payload"`
	}
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != "contract.returned" || ev.Payload["contract_id"] != 77 {
		t.Fatalf("unexpected event %s", msg)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish("contract.found", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}

func TestStoppedHubReleasesClients(t *testing.T) {
	hub, srv, stopHub := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, signedToken(t, "a@x.com")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(hub, 1)
	if hub.ClientCount() != 1 {
		t.Fatalf("client never registered")
	}

	stopHub()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to be closed after stop")
	} else if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
		t.Fatal("connection was left open after stop")
	}

	left := make(chan struct{})
	go func() {
		hub.leave(&Client{Hub: hub})
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(2 * time.Second):
		t.Fatal("unregister blocked after the hub stopped")
	}

	joined := make(chan bool)
	go func() { joined <- hub.join(&Client{Hub: hub}) }()
	select {
	case ok := <-joined:
		if ok {
			t.Fatal("a stopped hub must not accept clients")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("register blocked after the hub stopped")
	}
}
