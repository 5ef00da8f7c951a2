package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and subscribes it to the given
// email's notification stream. The email is an unauthenticated partition key,
// matching the trust boundary of the rest of the API.
func HandleWebSocket(c echo.Context, hub *Hub, userEmail string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserEmail: userEmail,
		Conn:      conn,
	}

	hub.register <- client

	client.Send(Message{
		Type:    "connected",
		Message: "Subscribed to alert notifications for " + userEmail,
	})

	// Drain reads until the client goes away, then unregister.
	go func() {
		defer func() {
			hub.unregister <- client
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	return nil
}
