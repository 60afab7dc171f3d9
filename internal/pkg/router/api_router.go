package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/DanielHaim/PanicDeck/app/controllers"
	"github.com/DanielHaim/PanicDeck/internal/pkg/env"
	"github.com/DanielHaim/PanicDeck/internal/pkg/ingest"
)

type ApiRouter struct {
	pipeline *ingest.App
}

func NewApiRouter(pipeline *ingest.App) *ApiRouter {
	return &ApiRouter{pipeline: pipeline}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	controllers.InitializeIngressController(h.pipeline)

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        ingestRateLimit(),
		Expiration: 1 * time.Minute,
		Storage:    limiterStorage(),
	}))

	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	v1.Post("/ingress", controllers.HandleIngress)
}

// limiterStorage backs the rate limiter with Redis so limits survive
// restarts and hold across replicas
func limiterStorage() *redis.Storage {
	return redis.New(redis.Config{
		Host: env.GetEnv("CACHE_HOST", "localhost"),
		Port: env.GetEnvInt("CACHE_PORT", 6379),
	})
}

func ingestRateLimit() int {
	max := env.GetEnvInt("INGRESS_RATE_LIMIT", 600)
	if max <= 0 {
		return 600
	}
	return max
}
