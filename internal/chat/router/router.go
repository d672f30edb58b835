package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"cuidarmed_chat_client/internal/chat/app"
)

// RegisterRoutes exposes the local status surface the dashboard shells
// poll: connection state, unread ledger, rooms listing.
func RegisterRoutes(r *fiber.App, session *app.Session) {
	r.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"state":      session.Adapter().State().String(),
			"badge":      session.Unread().Total(),
			"perRoom":    session.Unread().PerRoom(),
			"activeRoom": session.Unread().ActiveRoom(),
		})
	})

	r.Get("/rooms", func(c *fiber.Ctx) error {
		rooms, err := session.Registry().ListRooms(context.Background())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(rooms)
	})
}
