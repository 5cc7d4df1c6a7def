package stream

import (
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

var topicPattern = regexp.MustCompile(`^(timeline|group:[a-z0-9_-]+)$`)

func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:topic", func(c *fiber.Ctx) error {
		if !topicPattern.MatchString(c.Params("topic")) {
			return fiber.NewError(fiber.StatusNotFound, "unknown topic")
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("topic"))
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
