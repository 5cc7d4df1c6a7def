package storage

import (
	"backend-blog/internal/auth"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, loginRequired fiber.Handler) {
	r.Post("/images", loginRequired, func(c *fiber.Ctx) error {
		var req ImageRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		obj, err := svc.RegisterImage(c.Context(), auth.UserID(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}
