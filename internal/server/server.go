package server

import (
	"backend-blog/internal/auth"
	"backend-blog/internal/config"
	"backend-blog/internal/db"
	"backend-blog/internal/follow"
	"backend-blog/internal/posts"
	"backend-blog/internal/shared/apperr"
	"backend-blog/internal/storage"
	"backend-blog/internal/stream"
	"backend-blog/internal/timeline"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const timelineKeyPrefix = "blog:timeline"

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       db.Querier
	Redis    *redis.Client
	Stream   *stream.Hub
	Timeline *timeline.Cache
	Log      zerolog.Logger
}

func NewServer(cfg config.Config, q db.Querier, redisClient *redis.Client, log zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(log)})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       q,
		Redis:    redisClient,
		Stream:   stream.NewHub(redisClient, log),
		Timeline: timeline.NewCache(newTimelineStore(cfg, redisClient, log), log),
		Log:      log,
	}

	registerRoutes(s)
	return s
}

// Close stops background work owned by the server.
func (s *Server) Close() error {
	return s.Stream.Close()
}

func newTimelineStore(cfg config.Config, redisClient *redis.Client, log zerolog.Logger) timeline.Store {
	switch cfg.TimelineCache {
	case config.CacheNone:
		return timeline.NoopStore{}
	case config.CacheRedis:
		if redisClient != nil {
			return timeline.NewRedisStore(redisClient, timelineKeyPrefix, cfg.TimelineCacheTTL)
		}
		log.Warn().Msg("timeline cache: redis requested without REDIS_ADDR, using memory")
	}
	return timeline.NewMemoryStore(cfg.TimelineCacheTTL)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.App.Use(auth.Identify(s.Cfg.JWTSecret))
	loginRequired := auth.LoginRequired(s.Cfg.LoginPath)

	accounts := auth.NewService(s.Cfg.JWTSecret, s.DB)
	postSvc := posts.NewService(s.DB, s.Timeline, s.Stream, s.Log)
	followSvc := follow.NewService(s.DB)

	auth.RegisterRoutes(s.App.Group("/auth"), accounts)
	storage.RegisterRoutes(s.App.Group("/storage"), storage.NewService(s.DB, s.Cfg.MediaBaseURL), loginRequired)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
	follow.RegisterRoutes(s.App, followSvc, accounts, s.Cfg.PageSize, loginRequired)
	posts.RegisterRoutes(s.App, postSvc, accounts, followSvc, s.Cfg.PageSize, loginRequired)
}
