package services

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func (a *Api) WsUpgrade() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Notifications registers the browser for design save events. One connection
// per clientId; a reconnect with the same id replaces the old connection.
func (a *Api) Notifications() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {

		clientId := strings.TrimSpace(conn.Query("clientId"))
		if clientId == "" {
			conn.WriteMessage(websocket.CloseMessage, []byte("missing clientId"))
			conn.Close()
			return
		}

		client := NewWSClient(clientId, conn)
		a.hub.Add(client)
		log.Debug("ws client connected", "clientId", clientId)

		go client.writeLoop()
		client.readPump(func() {
			a.hub.Remove(clientId)
			log.Debug("ws client disconnected", "clientId", clientId)
		})
	})
}
