package follow

import (
	"backend-blog/internal/auth"
	"backend-blog/internal/paginate"
	"backend-blog/internal/posts"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, accounts posts.AccountFinder, pageSize int, loginRequired fiber.Handler) {
	r.Get("/follow", loginRequired, func(c *fiber.Ctx) error {
		feed, err := svc.Feed(c.Context(), auth.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"page_obj": paginate.Paginate(feed, c.Query("page"), pageSize)})
	})

	r.Post("/profile/:username/follow", loginRequired, func(c *fiber.Ctx) error {
		author, err := accounts.FindByUsername(c.Context(), c.Params("username"))
		if err != nil {
			return err
		}
		created, err := svc.Follow(c.Context(), auth.UserID(c), author.ID)
		if err != nil {
			return err
		}
		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(fiber.Map{
			"author":    author.Username,
			"following": created || author.ID != auth.UserID(c),
		})
	})

	r.Post("/profile/:username/unfollow", loginRequired, func(c *fiber.Ctx) error {
		author, err := accounts.FindByUsername(c.Context(), c.Params("username"))
		if err != nil {
			return err
		}
		if err := svc.Unfollow(c.Context(), auth.UserID(c), author.ID); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"author": author.Username, "following": false})
	})
}
