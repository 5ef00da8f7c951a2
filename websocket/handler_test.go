package websocket_test

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/jobatlas/jobatlas_backend/websocket"
)

func dialTestHub(t *testing.T) (*websocket.Hub, *gorillaws.Conn) {
	t.Helper()

	hub := websocket.NewHub()
	go hub.Run()

	e := echo.New()
	e.GET("/api/ws/:email", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, hub, c.Param("email"))
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/dev@example.com"
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// The welcome message confirms the registration went through the hub.
	var welcome websocket.Message
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("reading welcome message: %v", err)
	}
	if welcome.Type != "connected" {
		t.Fatalf("welcome type = %q, want connected", welcome.Type)
	}

	return hub, conn
}

func TestSendToUser_ConcurrentSendsToOneConnection(t *testing.T) {
	hub, conn := dialTestHub(t)

	const sends = 25
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.SendToUser("dev@example.com", websocket.Message{
				Type:    "new_jobs",
				Message: "new postings in your area",
			})
		}()
	}

	for i := 0; i < sends; i++ {
		var msg websocket.Message
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read %d failed: %v", i+1, err)
		}
		if msg.Type != "new_jobs" {
			t.Fatalf("read %d type = %q, want new_jobs", i+1, msg.Type)
		}
	}
	wg.Wait()
}

func TestSendToUser_NoConnections(t *testing.T) {
	hub := websocket.NewHub()
	go hub.Run()

	if err := hub.SendToUser("nobody@example.com", websocket.Message{Type: "new_jobs"}); err == nil {
		t.Error("expected an error when no connection is subscribed")
	}
}
