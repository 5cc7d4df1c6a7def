package posts

import (
	"context"

	"backend-blog/internal/auth"
	"backend-blog/internal/paginate"

	"github.com/gofiber/fiber/v2"
)

// AccountFinder resolves profile usernames.
type AccountFinder interface {
	FindByUsername(ctx context.Context, username string) (auth.User, error)
}

// FollowChecker answers whether a viewer follows an author.
type FollowChecker interface {
	IsFollowing(ctx context.Context, userID, authorID string) (bool, error)
}

func RegisterRoutes(r fiber.Router, svc *Service, accounts AccountFinder, follows FollowChecker, pageSize int, loginRequired fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		posts, err := svc.Timeline(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"page_obj": paginate.Paginate(posts, c.Query("page"), pageSize)})
	})

	r.Get("/group/:slug", func(c *fiber.Ctx) error {
		group, posts, err := svc.GroupPosts(c.Context(), c.Params("slug"))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"group":    group,
			"page_obj": paginate.Paginate(posts, c.Query("page"), pageSize),
		})
	})

	r.Get("/profile/:username", func(c *fiber.Ctx) error {
		author, err := accounts.FindByUsername(c.Context(), c.Params("username"))
		if err != nil {
			return err
		}
		posts, err := svc.AuthorPosts(c.Context(), author.ID)
		if err != nil {
			return err
		}
		following := false
		if viewer := auth.UserID(c); viewer != "" && viewer != author.ID {
			if following, err = follows.IsFollowing(c.Context(), viewer, author.ID); err != nil {
				return err
			}
		}
		return c.JSON(fiber.Map{
			"author":      author,
			"count_posts": len(posts),
			"page_obj":    paginate.Paginate(posts, c.Query("page"), pageSize),
			"following":   following,
		})
	})

	r.Get("/posts/:id", func(c *fiber.Ctx) error {
		post, err := svc.GetPost(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		count, err := svc.CountByAuthor(c.Context(), post.AuthorID)
		if err != nil {
			return err
		}
		comments, err := svc.Comments(c.Context(), post.ID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"post":        post,
			"count_posts": count,
			"comments":    comments,
		})
	})

	r.Post("/create", loginRequired, func(c *fiber.Ctx) error {
		var req PostForm
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		post, err := svc.CreatePost(c.Context(), auth.UserID(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(post)
	})

	r.Post("/posts/:id/edit", loginRequired, func(c *fiber.Ctx) error {
		var req PostForm
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		post, outcome, err := svc.EditPost(c.Context(), c.Params("id"), auth.UserID(c), req)
		if err != nil {
			return err
		}
		if outcome == EditForbidden {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "only the author can edit this post",
				"post_id": post.ID,
			})
		}
		return c.JSON(post)
	})

	r.Post("/posts/:id/comment", loginRequired, func(c *fiber.Ctx) error {
		var req CommentForm
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		comment, err := svc.AddComment(c.Context(), c.Params("id"), auth.UserID(c), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	})

	r.Get("/groups", func(c *fiber.Ctx) error {
		groups, err := svc.Groups(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(groups)
	})

	r.Post("/groups", loginRequired, func(c *fiber.Ctx) error {
		var req GroupForm
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		group, err := svc.CreateGroup(c.Context(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(group)
	})
}
